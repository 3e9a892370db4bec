// Package pipeline implements the Coordinator (§4.7): it streams the source
// CSV in fixed-size chunks, fans them out to a worker pool that runs the
// matcher cascade with per-worker caches, and fans annotated chunks back in
// to a result sink, all over bounded FIFO channels with explicit sentinel
// shutdown — the same producer/worker/sentinel shape as the original
// multiprocessing coordinator, re-expressed with goroutines and channels.
package pipeline

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hansard-resolve/internal/core/cascade"
	"hansard-resolve/internal/core/normalize"
	perr "hansard-resolve/internal/platform/errors"
	"hansard-resolve/internal/platform/logger"
	"hansard-resolve/internal/ioschema"
)

// DefaultChunkSize is the default number of input rows per chunk (§4.7).
const DefaultChunkSize = 1_000_000

// Chunk is a contiguous slice of input rows read in one coordinator read
// cycle. A Chunk with Sentinel set carries no rows; it is the per-worker
// shutdown signal enqueued once all real chunks have been read.
type Chunk struct {
	Seq      int
	Rows     []ioschema.InputRow
	Sentinel bool
}

// AnnotatedChunk is a Chunk after every row has passed through the cascade.
// A Sentinel AnnotatedChunk is the sink's terminal signal, emitted once all
// workers have joined.
type AnnotatedChunk struct {
	Seq      int
	Rows     []ioschema.OutputRow
	Sentinel bool
}

// SinkPort is the write side the Coordinator drives; internal/sink.Writer
// implements it.
type SinkPort interface {
	WriteChunk(AnnotatedChunk) error
}

// Timeouts bounds the coordinator run (§4.7 "cancellation/timeouts").
// Run limits the whole run; zero means no limit. Grace is how long, after
// cancellation, the sink side keeps writing annotated chunks still in flight
// before giving up; zero means it stops at once without draining.
type Timeouts struct {
	Run   time.Duration
	Grace time.Duration
}

// Config configures a Coordinator.
type Config struct {
	Workers   int // bounded by available CPUs; 0 defaults to 1
	ChunkSize int // 0 defaults to DefaultChunkSize
	Timeouts  Timeouts
}

// Coordinator drives one end-to-end run over a single input CSV.
type Coordinator struct {
	normalizer *normalize.Normalizer
	ref        *cascade.ReferenceData
	cfg        Config
}

// New constructs a Coordinator. normalizer and ref are treated as immutable
// and shared read-only across every worker (§4.7 "shared data").
func New(normalizer *normalize.Normalizer, ref *cascade.ReferenceData, cfg Config) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Coordinator{normalizer: normalizer, ref: ref, cfg: cfg}
}

// Run streams r (a header-first CSV matching ioschema.InputHeader) through
// the worker pool and into sink, blocking until every row has been written
// or an unrecoverable error occurs.
func (co *Coordinator) Run(ctx context.Context, r io.Reader, sink SinkPort) error {
	ctx, cancel := withBudget(ctx, co.cfg.Timeouts.Run)
	defer cancel()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeValidation, "pipeline: read input header")
	}
	idx := indexHeader(header)

	depth := 2 * co.cfg.Workers
	in := make(chan Chunk, depth)
	out := make(chan AnnotatedChunk, depth)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return co.readChunks(gctx, cr, idx, in)
	})

	var workersDone sync.WaitGroup
	for i := 0; i < co.cfg.Workers; i++ {
		workersDone.Add(1)
		g.Go(func() error {
			defer workersDone.Done()
			return co.runWorker(gctx, in, out)
		})
	}

	go func() {
		workersDone.Wait()
		select {
		case out <- AnnotatedChunk{Sentinel: true}:
		case <-gctx.Done():
		}
	}()

	g.Go(func() error {
		return drainToSink(gctx, out, sink, co.cfg.Timeouts.Grace)
	})

	return g.Wait()
}

// readChunks reads the body of the CSV in ChunkSize-row batches, enqueueing
// one Chunk per batch followed by one sentinel Chunk per worker (§4.7).
func (co *Coordinator) readChunks(ctx context.Context, cr *csv.Reader, idx map[string]int, in chan<- Chunk) error {
	seq := 0
	rowNum := 1
	batch := make([]ioschema.InputRow, 0, co.cfg.ChunkSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case in <- Chunk{Seq: seq, Rows: batch}:
			seq++
			batch = make([]ioschema.InputRow, 0, co.cfg.ChunkSize)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeValidation, "pipeline: input row %d malformed", rowNum)
		}
		rowNum++

		row, err := parseInputRow(idx, rec)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeValidation, "pipeline: input row %d", rowNum)
		}
		batch = append(batch, row)
		if len(batch) >= co.cfg.ChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	for i := 0; i < co.cfg.Workers; i++ {
		select {
		case in <- Chunk{Sentinel: true}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// runWorker consumes chunks until it sees its sentinel, resolving every row
// against a cascade built from the shared reference data with caches local
// to this worker (§4.7 "per-worker mutable state").
func (co *Coordinator) runWorker(ctx context.Context, in <-chan Chunk, out chan<- AnnotatedChunk) error {
	c := cascade.New(co.ref)
	caches := cascade.NewCaches()

	for {
		select {
		case chunk := <-in:
			if chunk.Sentinel {
				return nil
			}
			annotated := co.resolveChunk(c, caches, chunk)
			select {
			case out <- annotated:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (co *Coordinator) resolveChunk(c *cascade.Cascade, caches *cascade.Caches, chunk Chunk) AnnotatedChunk {
	rows := make([]ioschema.OutputRow, len(chunk.Rows))
	for i, row := range chunk.Rows {
		k := co.normalizer.Normalize(row.Speaker)
		res := c.Resolve(k, row.SpeechDate, row.House, row.DebateID, caches)

		out := ioschema.OutputRow{SentenceID: row.SentenceID, Speaker: row.Speaker}
		switch res.Outcome {
		case cascade.OutcomeMatch:
			out.SuggestedSpeaker = strconv.Itoa(res.MemberID)
			out.FuzzyMatched = res.FuzzyMatch
		case cascade.OutcomeAmbiguous:
			out.SuggestedSpeaker = joinCandidates(res.Candidates)
			out.Ambiguous = true
			out.FuzzyMatched = res.FuzzyMatch
		case cascade.OutcomeIgnored:
			out.Ignored = true
		case cascade.OutcomeMiss:
			// suggested_speaker stays empty.
		}
		rows[i] = out
	}
	return AnnotatedChunk{Seq: chunk.Seq, Rows: rows}
}

// drainToSink pulls annotated chunks until the terminal sentinel arrives,
// then returns (§4.7 "the Result Sink receives a distinct terminal sentinel
// once all workers have joined").
func drainToSink(ctx context.Context, out <-chan AnnotatedChunk, sink SinkPort, grace time.Duration) error {
	for {
		select {
		case chunk := <-out:
			if chunk.Sentinel {
				return nil
			}
			if err := sink.WriteChunk(chunk); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "pipeline: sink write failed")
			}
		case <-ctx.Done():
			if grace <= 0 {
				return ctx.Err()
			}
			logger.Get().Warn().Dur("grace", grace).Msg("pipeline: cancelled, draining remaining chunks before exit")
			return drainRemaining(out, sink, grace)
		}
	}
}

func drainRemaining(out <-chan AnnotatedChunk, sink SinkPort, grace time.Duration) error {
	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	for {
		select {
		case chunk := <-out:
			if chunk.Sentinel {
				return context.DeadlineExceeded
			}
			_ = sink.WriteChunk(chunk)
		case <-deadline.C:
			return context.DeadlineExceeded
		}
	}
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}

func parseInputRow(idx map[string]int, rec []string) (ioschema.InputRow, error) {
	get := func(name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	sentenceID, err := strconv.Atoi(get("sentence_id"))
	if err != nil {
		return ioschema.InputRow{}, perr.Wrapf(err, perr.ErrorCodeValidation, "invalid sentence_id %q", get("sentence_id"))
	}
	date, err := ioschema.ParseSearchDate(get("speechdate"), true)
	if err != nil {
		return ioschema.InputRow{}, perr.Wrapf(err, perr.ErrorCodeValidation, "invalid speechdate %q", get("speechdate"))
	}
	debateID, _ := strconv.Atoi(get("debate_id"))

	return ioschema.InputRow{
		SentenceID: sentenceID,
		SpeechDate: date,
		Speaker:    get("speaker"),
		DebateID:   debateID,
		House:      ioschema.FoldHouse(get("speaker_house")),
	}, nil
}

func joinCandidates(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	out := ""
	for i, v := range s {
		if i > 0 {
			out += "|"
		}
		out += v
	}
	return out
}

// withBudget returns a context limited by d without extending any parent
// deadline (same minimum-of-parent-and-requested pattern as a hard per-run
// timeout layered over an already-bounded caller context).
func withBudget(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if dl, ok := parent.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < d {
			return context.WithTimeout(parent, rem)
		}
	}
	return context.WithTimeout(parent, d)
}
