// Package aliasindex implements C4: the family of time-bounded alias
// tables and the inverted alias map, all built once at start-up and
// queried read-only by the matcher cascade.
package aliasindex

import (
	"sort"
	"strings"
	"time"

	"hansard-resolve/internal/core/catalog"
	"hansard-resolve/internal/core/editdist"
)

// Row is the uniform shape shared by every time-bounded alias table
// (peerage titles, name aliases, honorary titles, historic-hansard titles).
type Row struct {
	CorrespondingID int // 0 when absent; the alias resolves to itself as an opaque key
	HasMember       bool
	Alias           string
	Start           time.Time
	End             time.Time
	RealName        string
}

// InWindow reports whether d lies in [Start, End).
func (r Row) InWindow(d time.Time) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

// Table is a time-bounded alias table queried by containment or bounded fuzzy match.
type Table []Row

// Containment returns every row whose Alias contains k as a substring and
// whose window contains d (§4.4 exact/containment query mode).
func (t Table) Containment(k string, d time.Time) []Row {
	var out []Row
	for _, r := range t {
		if r.InWindow(d) && strings.Contains(r.Alias, k) {
			out = append(out, r)
		}
	}
	return out
}

// Fuzzy returns every row whose Alias is within edit-distance two of k
// (space-insensitive) and whose window contains d (§4.4 bounded-fuzzy mode).
func (t Table) Fuzzy(k string, d time.Time) []Row {
	var out []Row
	for _, r := range t {
		if r.InWindow(d) && editdist.WithinDistanceTwo(r.Alias, k, false) {
			out = append(out, r)
		}
	}
	return out
}

// DedupeByMember collapses rows to their distinct, present CorrespondingIDs,
// sorted ascending (candidate-set canonical form per §8 test scenarios).
func DedupeByMember(rows []Row) []int {
	seen := make(map[int]struct{})
	for _, r := range rows {
		if r.HasMember {
			seen[r.CorrespondingID] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Indexes bundles every alias table C6 consults, built once at start-up.
type Indexes struct {
	AliasMap        map[string][]int // normalized alias -> member ids, from every member's full alias set
	EditDistanceMap map[string][]int // edit-distance alias -> member ids

	PeerageTitles   Table
	NameAliases     Table // may be empty
	HonoraryTitles  Table
	TitleDF         Table // historic-hansard crawl table, optional
	OfficePositions map[string]Table // office alias -> table

	OfficeHoldings []*catalog.OfficeHolding
	Offices        map[int]*catalog.Office
}

// NewIndexes constructs an empty Indexes ready for population by refdata loaders.
func NewIndexes() *Indexes {
	return &Indexes{
		AliasMap:        make(map[string][]int),
		EditDistanceMap: make(map[string][]int),
		OfficePositions: make(map[string]Table),
		Offices:         make(map[int]*catalog.Office),
	}
}

// IndexMember populates AliasMap and EditDistanceMap from a member's
// generated alias families (§4.4 "Populated from every full-alias entry").
func (ix *Indexes) IndexMember(m *catalog.Member) {
	for a := range m.Aliases {
		ix.AliasMap[a] = append(ix.AliasMap[a], m.ID)
	}
	for a := range m.EditDistanceAlias {
		ix.EditDistanceMap[a] = append(ix.EditDistanceMap[a], m.ID)
	}
}

// IndexDefinedAlias registers a parenthetical defined alias directly into
// AliasMap (extracted from a member's full-name field at load time).
func (ix *Indexes) IndexDefinedAlias(alias string, memberID int) {
	ix.AliasMap[alias] = append(ix.AliasMap[alias], memberID)
}

// OfficeHoldingsForOffice restricts OfficeHoldings to the given office id.
func (ix *Indexes) OfficeHoldingsForOffice(officeID int) []*catalog.OfficeHolding {
	var out []*catalog.OfficeHolding
	for _, h := range ix.OfficeHoldings {
		if h.OfficeID == officeID {
			out = append(out, h)
		}
	}
	return out
}

// MatchOffice returns the first office (by ascending office id) whose alias
// set contains or exactly equals k (§4.6 stage 5's office lookup). Office ids
// are visited in sorted order rather than map iteration order so that two
// offices whose generated alias sets both match k resolve to the same office
// on every run over identical input (§5 determinism guarantee).
func (ix *Indexes) MatchOffice(k string) *catalog.Office {
	ids := make([]int, 0, len(ix.Offices))
	for id := range ix.Offices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if o := ix.Offices[id]; o.Matches(k, true) {
			return o
		}
	}
	return nil
}

// FuzzyOffices returns every office whose alias is within edit-distance
// four of k, space-sensitive (§4.6 stage 9, §9 open-question decision).
func (ix *Indexes) FuzzyOffices(k string) []*catalog.Office {
	var out []*catalog.Office
	for _, o := range ix.Offices {
		for a := range o.Aliases {
			if editdist.WithinDistanceFour(a, k, true) {
				out = append(out, o)
				break
			}
		}
	}
	return out
}
