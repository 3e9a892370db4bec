// Package cascade implements the Matcher Cascade (C6): the fixed ordered
// resolution strategy over the reference data built by C3/C4/C5, consulted
// once per normalized speaker key per row.
package cascade

import (
	"sort"
	"strings"
	"time"

	"hansard-resolve/internal/core/aliasindex"
	"hansard-resolve/internal/core/catalog"
	"hansard-resolve/internal/core/disambiguate"
	"hansard-resolve/internal/core/editdist"
)

// Outcome classifies a row's resolution (§4.6 "Outputs per row").
type Outcome int

const (
	OutcomeMatch Outcome = iota
	OutcomeAmbiguous
	OutcomeMiss
	OutcomeIgnored
)

// Result is the per-row output of the cascade.
type Result struct {
	Outcome    Outcome
	MemberID   int   // valid when Outcome == OutcomeMatch
	Candidates []int // sorted ascending; valid when Outcome == OutcomeAmbiguous
	FuzzyMatch bool
	StageHit   string // name of the stage that produced the outcome (diagnostics / property 4)
}

// ReferenceData bundles every immutable structure the cascade reads. It is
// built once at start-up by the refdata loaders and shared read-only across
// all workers (§5, §9 "module-level mutable globals become fields of a
// single ReferenceData struct").
type ReferenceData struct {
	Members map[int]*catalog.Member
	Indexes *aliasindex.Indexes

	IgnoredSet map[string]struct{}

	IgnoreKeywords []string
	IgnorePrefixes []string

	Inferences map[int]int // debate_id -> member_id

	Disambiguator *disambiguate.Disambiguator
}

// defaultIgnoreKeywords/Prefixes mirror the built-in heuristic of §4.6
// stage 2, used when the externally supplied ignored set is silent.
var (
	defaultIgnoreKeywords = []string{"member", "bishop", "archbishop"}
	defaultIgnorePrefixes = []string{"mrs ", "miss ", "a ", "an "}
)

// Caches holds the four (five, with the fuzzy supplement) per-worker caches
// of §4.6 stage 1 / §5 "per-worker mutable state". Never shared or merged
// across workers.
type Caches struct {
	match map[cacheKey]matchEntry
	ambig map[cacheKey][]int
	miss  map[cacheKey]struct{}
	ign   map[string]struct{}
	fuzzy map[cacheKey]bool
}

type cacheKey struct {
	k    string
	date int64 // Unix day number, stable across runs
}

type matchEntry struct {
	memberID int
	fuzzy    bool
}

// NewCaches constructs an empty, worker-local Caches.
func NewCaches() *Caches {
	return &Caches{
		match: make(map[cacheKey]matchEntry),
		ambig: make(map[cacheKey][]int),
		miss:  make(map[cacheKey]struct{}),
		ign:   make(map[string]struct{}),
		fuzzy: make(map[cacheKey]bool),
	}
}

func keyFor(k string, d time.Time) cacheKey {
	return cacheKey{k: k, date: d.Unix() / 86400}
}

// Cascade runs the fixed ordered resolution strategy of §4.6.
type Cascade struct {
	ref *ReferenceData
}

// New constructs a Cascade over immutable reference data.
func New(ref *ReferenceData) *Cascade {
	return &Cascade{ref: ref}
}

// candidateSet is the narrowing state threaded through stages 3-14: the
// member ids still in play, which stage produced them, and whether a fuzzy
// match contributed to the set (once fuzzy, always reported fuzzy).
type candidateSet struct {
	ids   []int
	stage string
	fuzzy bool
}

// Resolve runs the cascade for one row. k must already be the output of C1
// (the normalizer). caches is worker-local and must not be shared.
func (c *Cascade) Resolve(k string, speechDate time.Time, house disambiguate.House, debateID int, caches *Caches) Result {
	ck := keyFor(k, speechDate)

	// Stage 1: caches.
	if _, ok := caches.ign[k]; ok {
		return Result{Outcome: OutcomeIgnored, StageHit: "cache"}
	}
	if e, ok := caches.match[ck]; ok {
		return Result{Outcome: OutcomeMatch, MemberID: e.memberID, FuzzyMatch: e.fuzzy, StageHit: "cache"}
	}
	if cand, ok := caches.ambig[ck]; ok {
		return Result{Outcome: OutcomeAmbiguous, Candidates: cand, FuzzyMatch: caches.fuzzy[ck], StageHit: "cache"}
	}
	if _, ok := caches.miss[ck]; ok {
		return Result{Outcome: OutcomeMiss, StageHit: "cache"}
	}

	res := c.resolveUncached(k, speechDate, house, debateID)

	switch res.Outcome {
	case OutcomeIgnored:
		caches.ign[k] = struct{}{}
	case OutcomeMatch:
		caches.match[ck] = matchEntry{memberID: res.MemberID, fuzzy: res.FuzzyMatch}
	case OutcomeAmbiguous:
		caches.ambig[ck] = res.Candidates
	case OutcomeMiss:
		caches.miss[ck] = struct{}{}
	}
	if res.FuzzyMatch {
		caches.fuzzy[ck] = true
	}
	return res
}

func (c *Cascade) resolveUncached(k string, speechDate time.Time, house disambiguate.House, debateID int) Result {
	ctx := disambiguate.Context{SpeechDate: speechDate, House: house, DebateID: debateID}

	// Stage 2: ignore filter.
	if c.isIgnored(k) {
		return Result{Outcome: OutcomeIgnored, StageHit: "ignore-filter"}
	}

	// Stages 3-10: each contributes a candidate set; the first stage to
	// produce one wins. A unique (single-id) candidate set resolves
	// immediately — a later stage never overrules an earlier resolution.
	// Only an ambiguous (multi-id) set is carried forward into stages
	// 11-14, which exist solely to narrow an already-marked ambiguity
	// (stage 11 fires only "if still ambiguous").
	var cs candidateSet
	for _, stage := range []func(string, time.Time) (candidateSet, bool){
		c.stagePeerageTitles,
		c.stageNameAliases,
		c.stageOfficeByAlias,
		c.stageOfficeHoldingScan,
		c.stageAliasMap,
		c.stageFuzzyPeerageTitles,
		c.stageFuzzyOfficeHoldings,
		c.stageFuzzyNamePermutations,
	} {
		if got, ok := stage(k, speechDate); ok {
			cs = got
			break
		}
	}

	if len(cs.ids) == 0 {
		return Result{Outcome: OutcomeMiss, StageHit: "no-candidates"}
	}
	if len(cs.ids) == 1 {
		return Result{Outcome: OutcomeMatch, MemberID: cs.ids[0], FuzzyMatch: cs.fuzzy, StageHit: cs.stage}
	}
	candidates := cs.ids

	// Stage 11: debate-id override.
	if id, ok := c.ref.Inferences[debateID]; ok && containsInt(candidates, id) {
		return Result{Outcome: OutcomeMatch, MemberID: id, FuzzyMatch: cs.fuzzy, StageHit: "debate-override"}
	}

	// Stage 12: office-tenure pruning.
	if pruned := c.pruneByTenure(candidates, speechDate); len(pruned) > 0 {
		candidates = pruned
	}
	if len(candidates) == 1 {
		return Result{Outcome: OutcomeMatch, MemberID: candidates[0], FuzzyMatch: cs.fuzzy, StageHit: "tenure-pruning"}
	}

	// Stage 13: disambiguator.
	if id := c.ref.Disambiguator.Resolve(k, candidates, ctx); id != -1 {
		return Result{Outcome: OutcomeMatch, MemberID: id, FuzzyMatch: cs.fuzzy, StageHit: "disambiguator"}
	}

	// Stage 14: the surviving set resolves to a match if it collapsed to
	// one id, otherwise remains an unresolved ambiguity.
	if len(candidates) == 1 {
		return Result{Outcome: OutcomeMatch, MemberID: candidates[0], FuzzyMatch: cs.fuzzy, StageHit: cs.stage}
	}
	sorted := append([]int{}, candidates...)
	sort.Ints(sorted)
	return Result{Outcome: OutcomeAmbiguous, Candidates: sorted, FuzzyMatch: cs.fuzzy, StageHit: "unresolved-ambiguity"}
}

// isIgnored implements §4.6 stage 2's built-in heuristic plus the
// externally supplied ignored set.
func (c *Cascade) isIgnored(k string) bool {
	if _, ok := c.ref.IgnoredSet[k]; ok {
		return true
	}
	keywords := c.ref.IgnoreKeywords
	if keywords == nil {
		keywords = defaultIgnoreKeywords
	}
	prefixes := c.ref.IgnorePrefixes
	if prefixes == nil {
		prefixes = defaultIgnorePrefixes
	}
	if len(k) < 35 {
		for _, kw := range keywords {
			if strings.Contains(k, kw) {
				return true
			}
		}
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				return true
			}
		}
	}
	return false
}

func (c *Cascade) stagePeerageTitles(k string, d time.Time) (candidateSet, bool) {
	ids := aliasindex.DedupeByMember(c.ref.Indexes.PeerageTitles.Containment(k, d))
	return fromIDs(ids, "peerage-titles", false)
}

func (c *Cascade) stageNameAliases(k string, d time.Time) (candidateSet, bool) {
	ids := aliasindex.DedupeByMember(c.ref.Indexes.NameAliases.Containment(k, d))
	return fromIDs(ids, "name-aliases", false)
}

func (c *Cascade) stageOfficeByAlias(k string, d time.Time) (candidateSet, bool) {
	office := c.ref.Indexes.MatchOffice(k)
	if office == nil {
		return candidateSet{}, false
	}
	var ids []int
	for _, h := range c.ref.Indexes.OfficeHoldingsForOffice(office.ID) {
		if !d.Before(h.Start) && d.Before(h.End) {
			ids = append(ids, h.MemberID)
		}
	}
	return fromIDs(dedupeSorted(ids), "office-positions", false)
}

func (c *Cascade) stageOfficeHoldingScan(k string, d time.Time) (candidateSet, bool) {
	for _, h := range c.ref.Indexes.OfficeHoldings {
		if h.Matches(k, d, true) {
			return candidateSet{ids: []int{h.MemberID}, stage: "office-holding-scan"}, true
		}
	}
	return candidateSet{}, false
}

func (c *Cascade) stageAliasMap(k string, d time.Time) (candidateSet, bool) {
	var live []int
	for _, id := range c.ref.Indexes.AliasMap[k] {
		if m, ok := c.ref.Members[id]; ok && m.InLifeWindow(d) {
			live = append(live, id)
		}
	}
	return fromIDs(dedupeSorted(live), "alias-map", false)
}

func (c *Cascade) stageFuzzyPeerageTitles(k string, d time.Time) (candidateSet, bool) {
	ids := aliasindex.DedupeByMember(c.ref.Indexes.PeerageTitles.Fuzzy(k, d))
	return fromIDs(ids, "fuzzy-peerage-titles", true)
}

func (c *Cascade) stageFuzzyOfficeHoldings(k string, d time.Time) (candidateSet, bool) {
	var ids []int
	for _, o := range c.ref.Indexes.FuzzyOffices(k) {
		for _, h := range c.ref.Indexes.OfficeHoldingsForOffice(o.ID) {
			if !d.Before(h.Start) && d.Before(h.End) {
				ids = append(ids, h.MemberID)
			}
		}
	}
	return fromIDs(dedupeSorted(ids), "fuzzy-office-holdings", true)
}

// stageFuzzyNamePermutations implements §4.6 stage 10: strip single-letter
// tokens (initials) from k, then scan EditDistanceMap for aliases within
// distance two (space-insensitive).
func (c *Cascade) stageFuzzyNamePermutations(k string, d time.Time) (candidateSet, bool) {
	stripped := stripInitials(k)
	var ids []int
	for alias, memberIDs := range c.ref.Indexes.EditDistanceMap {
		if !editdist.WithinDistanceTwo(alias, stripped, false) {
			continue
		}
		for _, id := range memberIDs {
			if m, ok := c.ref.Members[id]; ok && m.InLifeWindow(d) {
				ids = append(ids, id)
			}
		}
	}
	return fromIDs(dedupeSorted(ids), "fuzzy-name-permutations", true)
}

func fromIDs(ids []int, stage string, fuzzy bool) (candidateSet, bool) {
	if len(ids) == 0 {
		return candidateSet{}, false
	}
	return candidateSet{ids: ids, stage: stage, fuzzy: fuzzy}, true
}

func stripInitials(k string) string {
	fields := strings.Fields(k)
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func (c *Cascade) pruneByTenure(candidates []int, d time.Time) []int {
	var out []int
	for _, id := range candidates {
		m, ok := c.ref.Members[id]
		if !ok {
			continue
		}
		if m.AgeAt(d) >= 20 && m.IsInOffice(d) {
			out = append(out, id)
		}
	}
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func dedupeSorted(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(xs))
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Ints(out)
	return out
}
