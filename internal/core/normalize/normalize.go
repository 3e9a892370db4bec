// Package normalize provides the deterministic speaker-string cleansing
// pipeline used ahead of the matcher cascade.
//
// Pipeline order
//  1. UTF-8 repair, drop invalid bytes
//  2. Unicode fold (NFKC, case fold, strip combining marks/format chars, width fold)
//     -- OCR output occasionally carries composed or full-width glyphs that
//     the reference corpus never had to deal with; folding them first keeps
//     the ASCII-only passes below exact.
//  3. Pre-regex pass: balanced-parenthesis removal (with parenthetical-alias
//     short-circuit), literal OCR name corrections
//  4. Cleansing: lowercase, strip non [a-z- ] runes, collapse spaces
//  5. Literal misspelling substitution (first occurrence only, load order)
//  6. Cleansing again
//  7. Post-regex pass: the configured anchored leading-token and phrase
//     corrections (none are built in)
package normalize

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains; order mirrors the documented pipeline.
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

var parenRe = regexp.MustCompile(`\(([^()]*)\)`)

var notAlphaHyphenSpace = regexp.MustCompile(`[^a-z\- ]`)

var spaceRuns = regexp.MustCompile(` +`)

// Correction is a literal substring replacement applied in load order.
type Correction struct {
	Incorrect string
	Correct   string
}

// RegexCorrection is an anchored regex substitution applied in load order.
type RegexCorrection struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Normalizer implements C1. It is immutable after construction and safe
// for concurrent use by any number of workers.
type Normalizer struct {
	pre          []Correction
	preRegex     []RegexCorrection // reserved for curated pre-pass literal-style regex fixes, if any are configured
	misspellings []Correction
	post         []RegexCorrection
	isAlias      func(s string) bool
}

// Options configures a Normalizer. AliasLookup, when non-nil, is consulted
// for the parenthetical-disambiguation short circuit (§4.1 step 1): when the
// normalized content of a balanced-parenthesis group is itself a known
// alias, that content becomes the whole normalized string.
type Options struct {
	PreCorrections  []Correction
	Misspellings    []Correction
	PostCorrections []RegexCorrection
	AliasLookup     func(s string) bool
}

// New constructs a Normalizer from load-time correction tables.
func New(opt Options) *Normalizer {
	isAlias := opt.AliasLookup
	if isAlias == nil {
		isAlias = func(string) bool { return false }
	}
	return &Normalizer{
		pre:          opt.PreCorrections,
		misspellings: opt.Misspellings,
		post:         opt.PostCorrections,
		isAlias:      isAlias,
	}
}

// Normalize returns the canonical search key K for a raw speaker string.
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = Sanitize(s)
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	if alias, ok := n.parentheticalAlias(ns); ok {
		return alias
	}

	ns = n.stripParens(ns)
	ns = n.substituteLiterals(ns)
	ns = cleanse(ns)
	ns = n.substituteMisspellings(ns)
	ns = cleanse(ns)
	ns = n.postRegexPass(ns)

	return strings.TrimSpace(ns)
}

// parentheticalAlias implements §4.1 step 1's short circuit: if the
// normalized content of a balanced-parenthesis group is itself a known
// alias, that content becomes the entire normalized string. The inner text
// runs through the same cleanse-then-post-regex-pass treatment as the main
// string (mirrors `postprocess(cleanse_string(...))` over the parenthetical
// group), so an OCR-damaged leading token inside the parens still resolves
// to a known alias.
func (n *Normalizer) parentheticalAlias(s string) (string, bool) {
	loc := parenRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", false
	}
	inner := s[loc[2]:loc[3]]
	cleansed := n.postRegexPass(cleanse(inner))
	if cleansed != "" && n.isAlias(cleansed) {
		return cleansed, true
	}
	return "", false
}

// stripParens removes every balanced-parenthesis group and its contents.
func (n *Normalizer) stripParens(s string) string {
	return parenRe.ReplaceAllString(s, "")
}

// substituteLiterals applies the curated list of OCR name-level corrections.
// s has already been case-folded, so each Incorrect pattern is lowercased
// before matching.
func (n *Normalizer) substituteLiterals(s string) string {
	for _, c := range n.pre {
		s = strings.Replace(s, strings.ToLower(c.Incorrect), c.Correct, -1)
	}
	return s
}

// cleanse lowercases, strips everything outside [a-z- ], and collapses
// whitespace runs to a single space, mirroring cleanse_string exactly.
func cleanse(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSpace(s)
	s = notAlphaHyphenSpace.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, " ")
	return s
}

// substituteMisspellings replaces the first occurrence of each known
// misspelling substring, in load order (stable across runs, §4.1).
func (n *Normalizer) substituteMisspellings(s string) string {
	for _, c := range n.misspellings {
		s = strings.Replace(s, c.Incorrect, c.Correct, 1)
	}
	return s
}

// postRegexPass applies the configured Options.PostCorrections in order. No
// corrections are built in, so with none configured this pass only trims.
func (n *Normalizer) postRegexPass(s string) string {
	for _, c := range n.post {
		s = c.Pattern.ReplaceAllString(s, c.Replacement)
	}
	return strings.TrimSpace(s)
}
