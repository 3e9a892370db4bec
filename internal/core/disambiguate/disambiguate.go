// Package disambiguate implements the Disambiguator (C5): a rule set keyed
// by (normalized alias, member id) expressing date/house/debate-id
// constraints, evaluated as tagged-variant trees (§9 Design Notes).
package disambiguate

import "time"

// House mirrors the glossary's house encoding: {unknown(0), commons(1), lords(2)}.
type House int

const (
	HouseUnknown House = 0
	HouseCommons House = 1
	HouseLords   House = 2
)

// Kind tags a Rule's variant.
type Kind int

const (
	KindAlways Kind = iota
	KindBefore
	KindAfter
	KindOn
	KindYear
	KindWithin
	KindHouse
	KindInDebateSet
	KindAnd
	KindOr
)

// Rule is a tagged-variant boolean predicate over (speechdate, house, debateID).
// Exactly one of the Kind-specific fields is meaningful for a given Kind;
// And/Or evaluate Children with short-circuit all/any semantics.
type Rule struct {
	Kind Kind

	Date            time.Time // Before, After, On
	Year            int       // Year, Within (start year)
	YearEnd         int       // Within (end year)
	WithinInclusive bool

	HouseVal House

	DebateSet map[int]struct{}

	Children []Rule
}

// Always returns a rule that is unconditionally true.
func Always() Rule { return Rule{Kind: KindAlways} }

// Before returns a rule requiring speechdate < the given date.
func Before(y, m, d int) Rule {
	return Rule{Kind: KindBefore, Date: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)}
}

// After returns a rule requiring speechdate > the given date.
func After(y, m, d int) Rule {
	return Rule{Kind: KindAfter, Date: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)}
}

// On returns a rule requiring speechdate == the given date.
func On(y, m, d int) Rule {
	return Rule{Kind: KindOn, Date: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)}
}

// Year returns a rule requiring speechdate's year == y.
func Year(y int) Rule { return Rule{Kind: KindYear, Year: y} }

// Within returns a rule requiring y1 <= speechdate's year <= y2 (or < y2
// when inclusive is false).
func Within(y1, y2 int, inclusive bool) Rule {
	return Rule{Kind: KindWithin, Year: y1, YearEnd: y2, WithinInclusive: inclusive}
}

// HouseIs returns a rule requiring the row's house == h.
func HouseIs(h House) Rule { return Rule{Kind: KindHouse, HouseVal: h} }

// InDebateSet returns a rule requiring debateID to be a member of ids.
func InDebateSet(ids ...int) Rule {
	s := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return Rule{Kind: KindInDebateSet, DebateSet: s}
}

// And combines rules with short-circuit AND semantics.
func And(rules ...Rule) Rule { return Rule{Kind: KindAnd, Children: rules} }

// Or combines rules with short-circuit OR semantics.
func Or(rules ...Rule) Rule { return Rule{Kind: KindOr, Children: rules} }

// Context is the tuple a Rule is evaluated against.
type Context struct {
	SpeechDate time.Time
	House      House
	DebateID   int
}

// Eval walks the rule tree and evaluates it against ctx.
func (r Rule) Eval(ctx Context) bool {
	switch r.Kind {
	case KindAlways:
		return true
	case KindBefore:
		return ctx.SpeechDate.Before(r.Date)
	case KindAfter:
		return ctx.SpeechDate.After(r.Date)
	case KindOn:
		return ctx.SpeechDate.Equal(r.Date)
	case KindYear:
		return ctx.SpeechDate.Year() == r.Year
	case KindWithin:
		y := ctx.SpeechDate.Year()
		if r.WithinInclusive {
			return y >= r.Year && y <= r.YearEnd
		}
		return y >= r.Year && y < r.YearEnd
	case KindHouse:
		return ctx.House == r.HouseVal
	case KindInDebateSet:
		_, ok := r.DebateSet[ctx.DebateID]
		return ok
	case KindAnd:
		for _, c := range r.Children {
			if !c.Eval(ctx) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range r.Children {
			if c.Eval(ctx) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Disambiguator holds the two rule maps of §3's Disambiguation rule and
// §4.5's two entry points.
type Disambiguator struct {
	ByMemberID map[int]Rule            // candidate filtering
	ByAlias    map[string]map[int]Rule // direct resolution, no fallback to generic rules
	hasAliasFn func(memberID int, k string) bool
}

// New constructs an empty Disambiguator. hasAlias is used to test whether a
// by_member_id candidate's aliases contain K (§4.5 by_members).
func New(hasAlias func(memberID int, k string) bool) *Disambiguator {
	return &Disambiguator{
		ByMemberID: make(map[int]Rule),
		ByAlias:    make(map[string]map[int]Rule),
		hasAliasFn: hasAlias,
	}
}

// ByAliasResolve implements §4.5's by_alias entry point: if k has an entry,
// return the member ids whose rule evaluates true. No fallback.
func (d *Disambiguator) ByAliasResolve(k string, ctx Context) []int {
	rules, ok := d.ByAlias[k]
	if !ok {
		return nil
	}
	var out []int
	for id, rule := range rules {
		if rule.Eval(ctx) {
			out = append(out, id)
		}
	}
	return out
}

// ByMembersResolve implements §4.5's by_members entry point: for each
// candidate with a by_member_id rule whose aliases contain k, evaluate
// the rule; keep survivors.
func (d *Disambiguator) ByMembersResolve(k string, candidates []int, ctx Context) []int {
	var out []int
	for _, id := range candidates {
		rule, ok := d.ByMemberID[id]
		if !ok {
			continue
		}
		if d.hasAliasFn != nil && !d.hasAliasFn(id, k) {
			continue
		}
		if rule.Eval(ctx) {
			out = append(out, id)
		}
	}
	return out
}

// Resolve is the unified call used by the cascade (§4.6 stage 13): prefer
// by_alias when k has a direct entry, else fall back to by_members.
// Result policy: exactly one surviving id resolves; zero or two-plus -> -1.
func (d *Disambiguator) Resolve(k string, candidates []int, ctx Context) int {
	var survivors []int
	if _, ok := d.ByAlias[k]; ok {
		survivors = d.ByAliasResolve(k, ctx)
	} else {
		survivors = d.ByMembersResolve(k, candidates, ctx)
	}
	if len(survivors) == 1 {
		return survivors[0]
	}
	return -1
}
