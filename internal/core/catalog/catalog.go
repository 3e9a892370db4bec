// Package catalog implements the Member Catalog (C3): members decomposed
// into titles/first/middle/last, their generated alias families, offices
// and the subsequence aliases they derive, and office holdings.
package catalog

import (
	"fmt"
	"strings"
	"time"

	perr "hansard-resolve/internal/platform/errors"
)

// Sentinel bounds used when a reference row's date is missing or open-ended.
var (
	SentinelStart = time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC)
	SentinelEnd   = time.Date(1910, 1, 1, 0, 0, 0, 0, time.UTC)
)

// cleanse mirrors normalize.cleanse (lower/strip/alpha-hyphen-space/collapse)
// without importing the normalize package, to keep catalog construction
// free of the normalizer's Unicode-folding dependency; callers pass already
// human-authored reference data, not OCR speaker strings.
func cleanse(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || r == '-' || r == ' ' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "  ") {
		out = strings.ReplaceAll(out, "  ", " ")
	}
	return strings.TrimSpace(out)
}

// OfficeTerm is a half-open interval of service attached to one Member.
type OfficeTerm struct {
	Start, End time.Time
}

// Contains reports whether d falls within [Start, End).
func (t OfficeTerm) Contains(d time.Time) bool {
	return !d.Before(t.Start) && d.Before(t.End)
}

// Member is a parsed speaker record with its generated alias families.
type Member struct {
	ID        int
	FirstName string
	LastName  string
	Titles    []string
	Middles   []string

	DOB time.Time
	DOD time.Time

	Terms []OfficeTerm

	Aliases           map[string]struct{}
	EditDistanceAlias map[string]struct{}
}

// IsInOffice reports whether the member holds any office term covering d.
func (m *Member) IsInOffice(d time.Time) bool {
	for _, t := range m.Terms {
		if t.Contains(d) {
			return true
		}
	}
	return false
}

// AgeAt returns the member's age in whole years at d.
func (m *Member) AgeAt(d time.Time) int {
	age := d.Year() - m.DOB.Year()
	if d.Month() < m.DOB.Month() || (d.Month() == m.DOB.Month() && d.Day() < m.DOB.Day()) {
		age--
	}
	return age
}

// InLifeWindow reports whether d falls within [DOB, DOD] inclusive.
func (m *Member) InLifeWindow(d time.Time) bool {
	return !d.Before(m.DOB) && !d.After(m.DOD)
}

// HasAlias reports whether the full alias set contains the normalized key.
func (m *Member) HasAlias(k string) bool {
	_, ok := m.Aliases[k]
	return ok
}

// NewMember constructs a Member from a full name and its declared
// first/last name components, generating both alias families (§4.3).
// Returns a *perr.Error with ErrorCodeValidation (FirstNameMissing /
// LastNameMissing in spirit) when the first/last name is not a token of
// the full name.
func NewMember(id int, fullName, firstName, lastName string, dob, dod time.Time) (*Member, error) {
	first := cleanse(firstName)
	last := cleanse(lastName)
	parts := strings.Fields(cleanse(fullName))

	fnIdx := indexOf(parts, first)
	if fnIdx < 0 {
		return nil, perr.Newf(perr.ErrorCodeValidation, "member %d: first name %q not found in full name %q (FirstNameMissing)", id, first, fullName)
	}
	lnIdx := indexOf(parts, last)
	if lnIdx < 0 {
		return nil, perr.Newf(perr.ErrorCodeValidation, "member %d: last name %q not found in full name %q (LastNameMissing)", id, last, fullName)
	}

	titles := make([]string, len(parts[:fnIdx]))
	copy(titles, parts[:fnIdx])
	for i, t := range titles {
		titles[i] = strings.TrimSuffix(t, ".")
	}
	if !contains(titles, "mr") {
		titles = append(titles, "mr")
	}

	middles := append([]string{}, parts[fnIdx+1:lnIdx]...)

	m := &Member{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Titles:    titles,
		Middles:   middles,
		DOB:       dob,
		DOD:       dod,
	}
	m.Aliases = buildFullAliases(titles, first, middles, surnamePossibilities(last))
	m.EditDistanceAlias = buildEditDistanceAliases(titles, first, surnamePossibilities(last))
	return m, nil
}

func indexOf(parts []string, s string) int {
	for i, p := range parts {
		if p == s {
			return i
		}
	}
	return -1
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// surnamePossibilities returns the hyphenated form plus every left-partition
// where the leftmost hyphen is replaced by a space (§4.3 "Surname possibilities").
func surnamePossibilities(last string) []string {
	out := []string{last}
	if i := strings.Index(last, "-"); i >= 0 {
		out = append(out, last[:i]+" "+last[i+1:])
	}
	return out
}

// middlePossibilities enumerates, for each middle name independently,
// {omit, initial, full} and returns the joined-and-trimmed combinations.
func middlePossibilities(middles []string) []string {
	if len(middles) == 0 {
		return []string{""}
	}
	var rec func(i int) []string
	rec = func(i int) []string {
		if i >= len(middles) {
			return []string{""}
		}
		rest := rec(i + 1)
		initial := middles[i][:1] + " "
		full := middles[i] + " "
		out := make([]string, 0, len(rest)*3)
		for _, p := range rest {
			out = append(out, p)
			out = append(out, collapseSpaces(initial+p))
			out = append(out, collapseSpaces(full+p))
		}
		return out
	}
	raw := rec(0)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, collapseSpaces(strings.TrimSpace(p)))
	}
	return out
}

func collapseSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// buildFullAliases implements the full alias family: the Cartesian product
// over {titles ∪ {∅}} × {∅, initial, first} × middle_possibilities,
// substituting every surname possibility for hyphenated surnames.
func buildFullAliases(titles []string, first string, middles []string, surnames []string) map[string]struct{} {
	out := make(map[string]struct{})
	mids := middlePossibilities(middles)
	firstOpts := []string{"", first[:1], first}
	titleOpts := append(append([]string{}, titles...), "")
	for _, title := range titleOpts {
		for _, fn := range firstOpts {
			for _, mn := range mids {
				for _, last := range surnames {
					alias := collapseSpaces(fmt.Sprintf("%s %s %s %s", title, fn, mn, last))
					alias = strings.TrimSpace(alias)
					if alias != "" {
						out[alias] = struct{}{}
					}
				}
			}
		}
	}
	return out
}

// buildEditDistanceAliases implements the smaller edit-distance alias
// family: {titles ∪ {∅}} × {∅, first} × {last} (no middle variants).
func buildEditDistanceAliases(titles []string, first string, surnames []string) map[string]struct{} {
	out := make(map[string]struct{})
	titleOpts := append(append([]string{}, titles...), "")
	for _, title := range titleOpts {
		for _, fn := range []string{"", first} {
			for _, last := range surnames {
				alias := collapseSpaces(fmt.Sprintf("%s %s %s", title, fn, last))
				alias = strings.TrimSpace(alias)
				if alias != "" {
					out[alias] = struct{}{}
				}
			}
		}
	}
	return out
}

// Office is a canonical office name plus its generated subsequence aliases.
type Office struct {
	ID      int
	Name    string
	Aliases map[string]struct{}
}

var officeStopwords = map[string]struct{}{"of": {}, "the": {}, "to": {}}

// NewOffice builds an Office and its subsequence alias set (§4.3).
func NewOffice(id int, name string) *Office {
	words := strings.Fields(cleanse(name))
	aliases := make(map[string]struct{})
	for _, p := range generateParts(words, 0) {
		aliases[p] = struct{}{}
	}
	return &Office{ID: id, Name: name, Aliases: aliases}
}

// generateParts recursively yields every subsequence that keeps each
// non-stopword and optionally keeps/drops each stopword, order-preserving.
func generateParts(words []string, i int) []string {
	if i >= len(words) {
		return []string{""}
	}
	word := words[i]
	rest := generateParts(words, i+1)
	_, isStop := officeStopwords[word]

	out := make([]string, 0, len(rest)*2)
	for _, p := range rest {
		if isStop {
			out = append(out, p)
		}
		if p != "" {
			out = append(out, word+" "+p)
		} else {
			out = append(out, word)
		}
	}
	return out
}

// Matches reports whether target is exactly one of the office's generated
// aliases. target is taken as already normalized when cleansed is true and
// is cleansed first when cleansed is false.
func (o *Office) Matches(target string, cleansed bool) bool {
	if !cleansed {
		target = cleanse(target)
	}
	_, ok := o.Aliases[target]
	return ok
}

// OfficeHolding asserts that MemberID held OfficeID during [Start,End).
type OfficeHolding struct {
	ID       int
	MemberID int
	OfficeID int
	Start    time.Time
	End      time.Time
	Office   *Office
}

// Matches reports whether officeName matches the held office's aliases and
// speechDate falls within the holding's half-open [Start,End) interval.
func (h *OfficeHolding) Matches(officeName string, speechDate time.Time, cleansed bool) bool {
	if speechDate.Before(h.Start) || !speechDate.Before(h.End) {
		return false
	}
	return h.Office.Matches(officeName, cleansed)
}
