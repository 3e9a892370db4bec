// Command hansard-resolve runs the Hansard speaker resolution pipeline over
// a single input CSV, writing an annotated output CSV and printing a
// completion summary (§4.7/§4.8).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"

	"hansard-resolve/internal/core/aliasindex"
	"hansard-resolve/internal/core/cascade"
	"hansard-resolve/internal/core/disambiguate"
	"hansard-resolve/internal/core/normalize"
	"hansard-resolve/internal/pipeline"
	"hansard-resolve/internal/platform/config"
	perr "hansard-resolve/internal/platform/errors"
	"hansard-resolve/internal/platform/logger"
	"hansard-resolve/internal/platform/runid"
	"hansard-resolve/internal/refdata"
	"hansard-resolve/internal/sink"
)

// flagSet is validated with go-playground/validator/v10; the upper bound on
// Cores depends on the host's CPU count, which validator's static tags
// cannot express, so that half of the check is done by hand in validateCores.
type flagSet struct {
	Cores int `validate:"gte=1"`
}

func validateCores(cores int) error {
	if err := validator.New().Struct(flagSet{Cores: cores}); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "invalid -cores")
	}
	if max := runtime.NumCPU(); cores > max {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "-cores %d exceeds host CPU count %d", cores, max)
	}
	return nil
}

// exit codes per §6: 0 success, 2 invalid argument, 1 internal error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if perr.IsCode(err, perr.ErrorCodeInvalidArgument) || perr.IsCode(err, perr.ErrorCodeValidation) {
		return 2
	}
	return 1
}

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()

	root := config.New()
	scratch := root.MayString("SCRATCH", "")
	dataDir := scratch
	if dataDir == "" {
		dataDir = "data"
	}
	outputDir := scratch
	if outputDir == "" {
		outputDir = "."
	}

	var (
		cores      = flag.Int("cores", runtime.NumCPU(), "worker count (1 <= cores <= host CPU count)")
		inputPath  = flag.String("input", filepath.Join(dataDir, "hansard_justnine_12192019.csv"), "source CSV path")
		outputPath = flag.String("output", filepath.Join(outputDir, "resolved.csv"), "annotated output CSV path")
	)
	flag.Parse()

	if err := validateCores(*cores); err != nil {
		l.Error().Err(err).Msg("hansard-resolve: invalid flags")
		os.Exit(exitCode(err))
	}

	ref, normalizer, err := buildReferenceData(dataDir)
	if err != nil {
		l.Error().Err(err).Msg("hansard-resolve: failed to load reference data")
		os.Exit(exitCode(err))
	}

	in, err := os.Open(*inputPath)
	if err != nil {
		wrapped := perr.Wrapf(err, perr.ErrorCodeUnavailable, "open input %s", *inputPath)
		l.Error().Err(wrapped).Msg("hansard-resolve: cannot open input")
		os.Exit(exitCode(wrapped))
	}
	defer in.Close()

	out, err := sink.New(sink.Options{
		OutputPath:    *outputPath,
		WebhookURL:    root.MayString("WEBHOOK_URL", ""),
		WebhookSecret: root.MayString("WEBHOOK_SECRET", ""),
	})
	if err != nil {
		l.Error().Err(err).Msg("hansard-resolve: failed to open output")
		os.Exit(exitCode(err))
	}

	co := pipeline.New(normalizer, ref, pipeline.Config{
		Workers: *cores,
		Timeouts: pipeline.Timeouts{
			Run:   root.MayDuration("RUN_TIMEOUT", 0),
			Grace: root.MayDuration("GRACE_PERIOD", 30*time.Second),
		},
	})

	run := runid.New()
	ctx := logger.WithRun(context.Background(), run)

	runErr := co.Run(ctx, in, out)
	summary, finishErr := out.Finish(ctx, run)
	if runErr != nil {
		l.Error().Err(runErr).Str("run_id", run).Msg("hansard-resolve: run failed")
		os.Exit(exitCode(runErr))
	}
	if finishErr != nil {
		l.Error().Err(finishErr).Str("run_id", run).Msg("hansard-resolve: failed to finalize output")
		os.Exit(exitCode(finishErr))
	}
	l.Info().Str("run_id", run).Int("total", summary.Total).Msg("hansard-resolve: run complete")
	fmt.Printf("run %s complete: %d rows in %s\n", run, summary.Total, summary.Duration)
}

// buildReferenceData loads every CSV table under dataDir and assembles the
// immutable ReferenceData + Normalizer the cascade and pipeline share
// read-only across workers (§5, §9).
func buildReferenceData(dataDir string) (*cascade.ReferenceData, *normalize.Normalizer, error) {
	now := time.Now()

	members, err := refdata.LoadMembers(filepath.Join(dataDir, "mps", "speakers-names", "speakers.csv"), now)
	if err != nil {
		return nil, nil, err
	}

	offices, err := refdata.LoadOfficeTitles(filepath.Join(dataDir, "titles", "office_titles.csv"))
	if err != nil {
		return nil, nil, err
	}

	holdings, err := refdata.LoadOfficeHoldings(filepath.Join(dataDir, "officeholdings.csv"), members, offices)
	if err != nil {
		return nil, nil, err
	}

	peerageTitles, err := refdata.LoadAliasTablesFromDir(filepath.Join(dataDir, "mps", "peerage-titles"))
	if err != nil {
		return nil, nil, err
	}

	nameAliases, err := refdata.LoadAliasTable(filepath.Join(dataDir, "hansard_titles.csv"))
	if err != nil {
		return nil, nil, err
	}

	misspellings, err := refdata.LoadCorrections(filepath.Join(dataDir, "pre_corrections", "misspellings_dictionary.csv"))
	if err != nil {
		return nil, nil, err
	}
	ocrCorrections, err := refdata.LoadCorrections(filepath.Join(dataDir, "pre_corrections", "common_OCR_errors_titles.csv"))
	if err != nil {
		return nil, nil, err
	}

	inferences, err := refdata.LoadInferences(filepath.Join(dataDir, "inferences.csv"))
	if err != nil {
		return nil, nil, err
	}

	ignored, err := refdata.LoadIgnoredSet(filepath.Join(dataDir, "non-mps"))
	if err != nil {
		return nil, nil, err
	}

	ix := aliasindex.NewIndexes()
	ix.PeerageTitles = peerageTitles
	ix.NameAliases = nameAliases
	ix.Offices = offices
	ix.OfficeHoldings = holdings
	for _, m := range members {
		ix.IndexMember(m)
	}

	aliasLookup := func(s string) bool {
		_, ok := ix.AliasMap[s]
		return ok
	}

	hasAlias := func(memberID int, k string) bool {
		for _, id := range ix.AliasMap[k] {
			if id == memberID {
				return true
			}
		}
		return false
	}
	dis := disambiguate.New(hasAlias)
	for id, rule := range disambiguate.HistoricalRules() {
		dis.ByMemberID[id] = rule
	}

	ref := &cascade.ReferenceData{
		Members:       members,
		Indexes:       ix,
		IgnoredSet:    ignored,
		Inferences:    inferences,
		Disambiguator: dis,
	}

	normalizer := normalize.New(normalize.Options{
		PreCorrections: ocrCorrections,
		Misspellings:   misspellings,
		AliasLookup:    aliasLookup,
	})

	return ref, normalizer, nil
}
