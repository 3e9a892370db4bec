// Package sink implements the Result Sink (C8 / §4.8): a single writer
// that appends annotated chunks to an on-disk CSV, tracks running outcome
// counters, and prints a completion summary with an optional webhook
// notification — grounded on the original `export()` collector's counters,
// header-on-first-write, and completion percentage print, re-expressed as
// a Go type implementing pipeline.SinkPort.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	perr "hansard-resolve/internal/platform/errors"
	"hansard-resolve/internal/platform/logger"
	"hansard-resolve/internal/ioschema"
	"hansard-resolve/internal/pipeline"
)

const defaultWebhookTimeout = 10 * time.Second

// Counters tracks the running outcome tallies (§4.8 "hits, ambiguities,
// misses, and ignored rows").
type Counters struct {
	Hit       int
	Ambiguous int
	Missed    int
	Ignored   int
}

// Total is the sum of every counted row.
func (c Counters) Total() int { return c.Hit + c.Ambiguous + c.Missed + c.Ignored }

// Writer is the on-disk CSV append sink. One Writer instance serves one
// run. WriteChunk and Finish take an internal lock, so concurrent calls are
// serialized; the pipeline Coordinator drives it from a single task anyway
// (§4.7 "a single sink task serialises output").
type Writer struct {
	mu        sync.Mutex
	f         *os.File
	csv       *csv.Writer
	wroteHead bool
	counters  Counters
	chunks    int
	started   time.Time

	webhookURL    string
	webhookSecret string
	httpClient    *http.Client
}

// Options configures a Writer.
type Options struct {
	OutputPath    string
	WebhookURL    string
	WebhookSecret string
}

// New opens (truncating) OutputPath for append-writing and returns a ready
// Writer.
func New(opt Options) (*Writer, error) {
	f, err := os.Create(opt.OutputPath)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "sink: create %s", opt.OutputPath)
	}
	return &Writer{
		f:             f,
		csv:           csv.NewWriter(f),
		started:       time.Now(),
		webhookURL:    opt.WebhookURL,
		webhookSecret: opt.WebhookSecret,
		httpClient:    &http.Client{Timeout: defaultWebhookTimeout},
	}, nil
}

// WriteChunk implements pipeline.SinkPort: it appends rows to the CSV,
// emitting the header once on the first chunk, and folds the chunk's
// outcomes into the running counters.
func (w *Writer) WriteChunk(c pipeline.AnnotatedChunk) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.wroteHead {
		if err := w.csv.Write(ioschema.OutputHeader); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "sink: write header")
		}
		w.wroteHead = true
	}

	for _, row := range c.Rows {
		if err := w.csv.Write(row.Record()); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "sink: write row %d", row.SentenceID)
		}
		w.count(row)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "sink: flush")
	}
	w.chunks++
	return nil
}

func (w *Writer) count(row ioschema.OutputRow) {
	switch {
	case row.Ignored:
		w.counters.Ignored++
	case row.Ambiguous:
		w.counters.Ambiguous++
	case row.SuggestedSpeaker != "":
		w.counters.Hit++
	default:
		w.counters.Missed++
	}
}

// Summary is the completion report §4.8 prints and may post to a webhook.
type Summary struct {
	RunID        string    `json:"run_id"`
	Started      time.Time `json:"started"`
	Duration     string    `json:"duration"`
	Chunks       int       `json:"chunks"`
	Total        int       `json:"total"`
	Hit          int       `json:"hit"`
	Ambiguous    int       `json:"ambiguous"`
	Missed       int       `json:"missed"`
	Ignored      int       `json:"ignored"`
	HitPercent   float64   `json:"hit_percent"`
	AmbigPercent float64   `json:"ambig_percent"`
	MissPercent  float64   `json:"miss_percent"`
}

// Finish closes the output file, computes the completion summary, prints
// it, and — when a webhook secret was configured — POSTs it. Duration is
// computed from the Writer's own start time so callers never need to pass
// a timestamp across the no-Date.Now()-in-workflows boundary.
func (w *Writer) Finish(ctx context.Context, runID string) (Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.csv.Flush()
	closeErr := w.f.Close()

	s := Summary{
		RunID:     runID,
		Started:   w.started,
		Duration:  time.Since(w.started).String(),
		Chunks:    w.chunks,
		Total:     w.counters.Total(),
		Hit:       w.counters.Hit,
		Ambiguous: w.counters.Ambiguous,
		Missed:    w.counters.Missed,
		Ignored:   w.counters.Ignored,
	}
	if s.Total > 0 {
		s.HitPercent = 100 * float64(s.Hit) / float64(s.Total)
		s.AmbigPercent = 100 * float64(s.Ambiguous) / float64(s.Total)
		s.MissPercent = 100 * float64(s.Missed) / float64(s.Total)
	}

	fmt.Printf("%d hits (%.2f%%)\n", s.Hit, s.HitPercent)
	fmt.Printf("%d ambiguities (%.2f%%)\n", s.Ambiguous, s.AmbigPercent)
	fmt.Printf("%d misses (%.2f%%)\n", s.Missed, s.MissPercent)
	fmt.Printf("%d ignored\n", s.Ignored)
	fmt.Printf("total rows processed: %d\n", s.Total)

	if closeErr != nil {
		return s, perr.Wrapf(closeErr, perr.ErrorCodeUnavailable, "sink: close output file")
	}

	if w.webhookSecret == "" {
		return s, nil
	}
	if w.webhookURL == "" {
		logger.Get().Warn().Msg("sink: WEBHOOK_SECRET set but no webhook URL configured, skipping notification")
		return s, nil
	}
	if err := w.postWebhook(ctx, s); err != nil {
		logger.Get().Warn().Err(err).Msg("sink: completion webhook failed")
	}
	return s, nil
}

func (w *Writer) postWebhook(ctx context.Context, s Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "sink: marshal summary")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "sink: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", w.webhookSecret)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "sink: post webhook")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return perr.Newf(perr.ErrorCodeUnavailable, "sink: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
