// Package ioschema defines the row shapes crossing the CSV boundary (§6
// external interfaces) and the date/house folding rules shared by the
// reference-data loaders, the pipeline, and the result sink.
package ioschema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hansard-resolve/internal/core/disambiguate"
)

// InputRow is one row of the source CSV: sentence_id, speechdate, speaker,
// debate_id, speaker_house.
type InputRow struct {
	SentenceID int
	SpeechDate time.Time
	Speaker    string
	DebateID   int
	House      disambiguate.House
}

// InputHeader is the expected column order of the source CSV.
var InputHeader = []string{"sentence_id", "speechdate", "speaker", "debate_id", "speaker_house"}

// OutputHeader is the appended CSV column order (§6 output row schema).
var OutputHeader = []string{"sentence_id", "speaker", "suggested_speaker", "ambiguous", "fuzzy_matched", "ignored"}

// OutputRow is one annotated result row.
type OutputRow struct {
	SentenceID       int
	Speaker          string
	SuggestedSpeaker string // member id, pipe-joined candidate ids, or empty
	Ambiguous        bool
	FuzzyMatched     bool
	Ignored          bool
}

// Record renders an OutputRow as a CSV string record in OutputHeader order.
func (r OutputRow) Record() []string {
	return []string{
		strconv.Itoa(r.SentenceID),
		r.Speaker,
		r.SuggestedSpeaker,
		boolDigit(r.Ambiguous),
		boolDigit(r.FuzzyMatched),
		boolDigit(r.Ignored),
	}
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// FoldHouse implements §6's speaker_house folding: uppercase, strip
// non-alphabetic characters, then compare.
func FoldHouse(raw string) disambiguate.House {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	switch b.String() {
	case "HOUSEOFCOMMONS":
		return disambiguate.HouseCommons
	case "HOUSEOFLORDS":
		return disambiguate.HouseLords
	default:
		return disambiguate.HouseUnknown
	}
}

// ParseSearchDate parses a reference-table date that may use '/' or '-' as
// separator and may be year-only or year-month (§3, §6). start selects
// whether a partial date expands to its earliest or latest day.
func ParseSearchDate(raw string, start bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("ParseSearchDate: empty date string")
	}
	sep := "-"
	if strings.Contains(raw, "/") {
		sep = "/"
	}
	parts := strings.Split(raw, sep)
	switch len(parts) {
	case 3:
		return parseYMD(parts[0], parts[1], parts[2])
	case 2:
		y, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("ParseSearchDate: invalid year in %q: %w", raw, err)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("ParseSearchDate: invalid month in %q: %w", raw, err)
		}
		if start {
			return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), nil
		}
		return time.Date(y, time.Month(m), daysInMonth(y, m), 0, 0, 0, 0, time.UTC), nil
	case 1:
		y, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("ParseSearchDate: invalid year %q: %w", raw, err)
		}
		if start {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
		}
		return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("ParseSearchDate: unrecognized date string %q", raw)
	}
}

func parseYMD(ys, ms, ds string) (time.Time, error) {
	y, err := strconv.Atoi(ys)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseSearchDate: invalid year %q: %w", ys, err)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseSearchDate: invalid month %q: %w", ms, err)
	}
	d, err := strconv.Atoi(ds)
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseSearchDate: invalid day %q: %w", ds, err)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

func daysInMonth(y, m int) int {
	t := time.Date(y, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC)
	return t.Day()
}
