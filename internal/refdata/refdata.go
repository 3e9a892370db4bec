// Package refdata loads the flat CSV reference tables (§6) into the C3/C4/C5
// structures the cascade consults: members, office titles, office holdings,
// peerage/honorary/office-position alias tables, corrections, inferences,
// and the ignored set. Loading happens once at start-up; the error-handling
// split between fatal structural errors and tolerant per-row skips follows
// §7.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hansard-resolve/internal/core/aliasindex"
	"hansard-resolve/internal/core/catalog"
	"hansard-resolve/internal/core/normalize"
	perr "hansard-resolve/internal/platform/errors"
	"hansard-resolve/internal/platform/logger"
	"hansard-resolve/internal/ioschema"
)

// openCSV opens path and returns a reader positioned after the header row,
// along with the header's column-name-to-index map.
func openCSV(path string) (*csv.Reader, map[string]int, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "refdata: open %s", path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: read header of %s", path)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return r, idx, f, nil
}

func col(idx map[string]int, rec []string, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// LoadMembers reads speakers.csv (§6: corresponding_id, speaker_name,
// first_name, last_name, dob, dod). A missing or unparsable dob falls back
// to catalog.SentinelStart, and a missing or unparsable dod to now (the
// process start time). Rows whose first/last name is not a token of
// the full name are skipped and logged, per §7's per-member validation
// policy; every other structural problem (unparsable corresponding_id,
// duplicate id) is fatal.
func LoadMembers(path string, now time.Time) (map[int]*catalog.Member, error) {
	r, idx, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	members := make(map[int]*catalog.Member)
	row := 1
	for {
		row++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s row %d: malformed CSV record", path, row)
		}

		idStr := col(idx, rec, "corresponding_id")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "refdata: %s row %d: invalid corresponding_id %q", path, row, idStr)
		}
		if _, dup := members[id]; dup {
			return nil, perr.Newf(perr.ErrorCodeValidation, "refdata: %s row %d: duplicate member id %d", path, row, id)
		}

		dob := parseMemberDate(col(idx, rec, "dob"), catalog.SentinelStart)
		dod := parseMemberDate(col(idx, rec, "dod"), now)

		m, err := catalog.NewMember(id, col(idx, rec, "speaker_name"), col(idx, rec, "first_name"), col(idx, rec, "last_name"), dob, dod)
		if err != nil {
			logger.Get().Warn().Err(err).Int("row", row).Str("file", path).Msg("refdata: skipping member with invalid name")
			continue
		}
		members[id] = m
	}
	return members, nil
}

func parseMemberDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	d, err := parseFlexibleDate(raw)
	if err != nil {
		return fallback
	}
	return d
}

func parseFlexibleDate(raw string) (time.Time, error) {
	sep := "-"
	if strings.Contains(raw, "/") {
		sep = "/"
	}
	parts := strings.Split(raw, sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("refdata: unrecognized date %q", raw)
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	d, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("refdata: unparsable date %q", raw)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

// LoadOfficeTitles reads office_titles.csv (§6: office_id, name).
func LoadOfficeTitles(path string) (map[int]*catalog.Office, error) {
	r, idx, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	offices := make(map[int]*catalog.Office)
	row := 1
	for {
		row++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s row %d: malformed CSV record", path, row)
		}
		idStr := col(idx, rec, "office_id")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "refdata: %s row %d: invalid office_id %q", path, row, idStr)
		}
		offices[id] = catalog.NewOffice(id, col(idx, rec, "name"))
	}
	return offices, nil
}

// LoadOfficeHoldings reads officeholdings.csv (§6: corresponding_id,
// office_id, start_search, end_search). Rows referencing an unknown member
// or office are skipped and logged (§7 tolerant policy; the original
// `worker.py` loader treats these the same way, not as fatal).
func LoadOfficeHoldings(path string, members map[int]*catalog.Member, offices map[int]*catalog.Office) ([]*catalog.OfficeHolding, error) {
	r, idx, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*catalog.OfficeHolding
	row := 1
	for {
		row++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s row %d: malformed CSV record", path, row)
		}

		memberID, err := strconv.Atoi(col(idx, rec, "corresponding_id"))
		if err != nil {
			logger.Get().Warn().Int("row", row).Str("file", path).Msg("refdata: skipping office holding with invalid member id")
			continue
		}
		officeID, err := strconv.Atoi(col(idx, rec, "office_id"))
		if err != nil {
			logger.Get().Warn().Int("row", row).Str("file", path).Msg("refdata: skipping office holding with invalid office id")
			continue
		}
		office, ok := offices[officeID]
		if !ok {
			logger.Get().Warn().Int("row", row).Int("office_id", officeID).Msg("refdata: skipping office holding for unknown office")
			continue
		}
		if _, ok := members[memberID]; !ok {
			logger.Get().Warn().Int("row", row).Int("member_id", memberID).Msg("refdata: skipping office holding for unknown member")
			continue
		}

		start, err := ioschema.ParseSearchDate(col(idx, rec, "start_search"), true)
		if err != nil {
			start = catalog.SentinelStart
		}
		end, err := ioschema.ParseSearchDate(col(idx, rec, "end_search"), false)
		if err != nil {
			end = catalog.SentinelEnd
		}

		out = append(out, &catalog.OfficeHolding{
			ID:       len(out) + 1,
			MemberID: memberID,
			OfficeID: officeID,
			Start:    start,
			End:      end,
			Office:   office,
		})
	}
	return out, nil
}

// LoadAliasTable reads a peerage/military/honorary/office-position alias
// CSV (§6: corresponding_id?, real_name?, alias, start_search, end_search
// [, honorary_title?]) into an aliasindex.Table. A blank corresponding_id
// is a self-keyed row (HasMember false) — §4.4's "alias resolves to itself
// as an opaque key" case, used by office-position tables whose rows carry
// no member id until joined elsewhere.
func LoadAliasTable(path string) (aliasindex.Table, error) {
	r, idx, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tbl aliasindex.Table
	row := 1
	for {
		row++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s row %d: malformed CSV record", path, row)
		}

		alias := normalize.Sanitize(strings.ToLower(col(idx, rec, "alias")))
		alias = strings.ReplaceAll(alias, "'", "")
		if alias == "" {
			continue
		}

		start, err := ioschema.ParseSearchDate(col(idx, rec, "start_search"), true)
		if err != nil {
			start = catalog.SentinelStart
		}
		end, err := ioschema.ParseSearchDate(col(idx, rec, "end_search"), false)
		if err != nil {
			end = catalog.SentinelEnd
		}

		idStr := col(idx, rec, "corresponding_id")
		hasMember := false
		id := 0
		if idStr != "" {
			parsed, err := strconv.Atoi(idStr)
			if err != nil {
				return nil, perr.Newf(perr.ErrorCodeValidation, "refdata: %s row %d: invalid corresponding_id %q", path, row, idStr)
			}
			id, hasMember = parsed, true
		}

		tbl = append(tbl, aliasindex.Row{
			CorrespondingID: id,
			HasMember:       hasMember,
			Alias:           alias,
			Start:           start,
			End:             end,
			RealName:        strings.ToLower(col(idx, rec, "real_name")),
		})
	}
	return tbl, nil
}

// LoadAliasTablesFromDir loads every CSV in dir with LoadAliasTable and
// concatenates them into one table (mirrors `_load_lord_titles`'s
// directory-of-CSVs concatenation).
func LoadAliasTablesFromDir(dir string) (aliasindex.Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "refdata: read dir %s", dir)
	}
	var tbl aliasindex.Table
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		part, err := LoadAliasTable(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		tbl = append(tbl, part...)
	}
	return tbl, nil
}

// LoadCorrections reads a two-column (INCORRECT, CORRECT) CSV into a
// load-ordered Correction slice (§6 misspelling literals schema).
func LoadCorrections(path string) ([]normalize.Correction, error) {
	r, idx, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []normalize.Correction
	row := 1
	for {
		row++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s row %d: malformed CSV record", path, row)
		}
		incorrect := strings.ToLower(col(idx, rec, "INCORRECT"))
		if incorrect == "" {
			continue
		}
		out = append(out, normalize.Correction{Incorrect: incorrect, Correct: col(idx, rec, "CORRECT")})
	}
	return out, nil
}

// LoadInferences reads inferences.csv (§6: debate_id, member_id).
func LoadInferences(path string) (map[int]int, error) {
	r, idx, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[int]int)
	row := 1
	for {
		row++
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s row %d: malformed CSV record", path, row)
		}
		debateID, err := strconv.Atoi(col(idx, rec, "debate_id"))
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "refdata: %s row %d: invalid debate_id", path, row)
		}
		memberID, err := strconv.Atoi(col(idx, rec, "member_id"))
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "refdata: %s row %d: invalid member_id", path, row)
		}
		out[debateID] = memberID
	}
	return out, nil
}

// LoadIgnoredSet walks dir, reading the "non_mps" column from every CSV
// found (§6: "pooled from every CSV under the non-MPs directory").
func LoadIgnoredSet(dir string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".csv") {
			return nil
		}
		r, idx, f, err := openCSV(path)
		if err != nil {
			return err
		}
		defer f.Close()
		for {
			rec, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeValidation, "refdata: %s: malformed CSV record", path)
			}
			if v := col(idx, rec, "non_mps"); v != "" {
				out[strings.ToLower(v)] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "refdata: walk %s", dir)
	}
	return out, nil
}
