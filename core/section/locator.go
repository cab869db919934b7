// Package section models the hierarchical section numbers of the standard
// and the tag index that maps bracketed section tags to them.
package section

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
)

// Technical-report prefixes recognised in section numbers.
const (
	PrefixTR1       = "TR1"
	PrefixTRDecimal = "TRDecimal"
)

// letterBase is the encoding of 'A' in a component. Numbered components
// stay below it.
const letterBase = 100

// sentinelComponent sorts after every lettered component.
const sentinelComponent = letterBase + 26

// Locator is a parsed section number such as "23.3.6", "A.1" or "TR1 5.1".
type Locator struct {
	// Prefix names the technical report, empty for the primary standard.
	Prefix string

	// Components holds the dotted parts. Letters are stored as 100 + (c - 'A').
	Components []int
}

// locatorGrammar is the participle grammar for section numbers.
//
//nolint:govet // participle grammar tags are not standard struct tags
type locatorGrammar struct {
	Prefix     string       `@Prefix?`
	Components []*component `@@ ( "." @@ )*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type component struct {
	Number *int    `  @Int`
	Letter *string `| @Letter`
}

// locatorLexer tokenises section numbers. Prefix must precede Letter so that
// "TR1" is not read as the letter T.
var locatorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Prefix", Pattern: `TRDecimal|TR1`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Letter", Pattern: `[A-Z]`},
	{Name: "Punct", Pattern: `\.`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var locatorParser = participle.MustBuild[locatorGrammar](
	participle.Lexer(locatorLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a section number. The optional prefix is separated from the
// components by whitespace.
func Parse(text string) (Locator, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Locator{}, &lwgerrors.SectionError{Text: text, Message: "empty section number"}
	}

	parsed, err := locatorParser.ParseString("", s)
	if err != nil {
		return Locator{}, &lwgerrors.SectionError{Text: text, Message: "malformed component", Err: err}
	}

	loc := Locator{
		Prefix:     parsed.Prefix,
		Components: make([]int, 0, len(parsed.Components)),
	}
	for _, c := range parsed.Components {
		switch {
		case c.Letter != nil:
			loc.Components = append(loc.Components, letterBase+int((*c.Letter)[0]-'A'))
		case c.Number != nil:
			if *c.Number >= letterBase {
				return Locator{}, &lwgerrors.SectionError{Text: text, Message: "component out of range"}
			}
			loc.Components = append(loc.Components, *c.Number)
		}
	}
	return loc, nil
}

// MustParse is like Parse but panics on error. Intended for tests and tables.
func MustParse(text string) Locator {
	loc, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return loc
}

// Sentinel returns the placeholder locator given to tags that are missing
// from the reference table. It sorts after every other locator, whatever its prefix.
func Sentinel() Locator {
	return Locator{Components: []int{sentinelComponent}}
}

// IsSentinel reports whether l is the placeholder locator.
func (l Locator) IsSentinel() bool {
	return l.Prefix == "" && len(l.Components) == 1 && l.Components[0] == sentinelComponent
}

// String renders l in the form accepted by Parse.
func (l Locator) String() string {
	if l.IsSentinel() {
		return "??"
	}

	var sb strings.Builder
	if l.Prefix != "" {
		sb.WriteString(l.Prefix)
		sb.WriteByte(' ')
	}
	for i, c := range l.Components {
		if i > 0 {
			sb.WriteByte('.')
		}
		writeComponent(&sb, c)
	}
	return sb.String()
}

func writeComponent(sb *strings.Builder, c int) {
	if c >= letterBase {
		sb.WriteByte(byte(c - letterBase + 'A'))
		return
	}
	sb.WriteString(strconv.Itoa(c))
}

// Compare orders locators by prefix, then component by component. A shorter
// sequence sorts before any sequence it is a prefix of. The sentinel sorts last.
func Compare(a, b Locator) int {
	if as, bs := a.IsSentinel(), b.IsSentinel(); as || bs {
		switch {
		case as && bs:
			return 0
		case as:
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.Prefix, b.Prefix); c != 0 {
		return c
	}
	return slices.Compare(a.Components, b.Components)
}

// Less reports whether l sorts before other.
func (l Locator) Less(other Locator) bool {
	return Compare(l, other) < 0
}

// Equal reports whether l and other have the same prefix and components.
func (l Locator) Equal(other Locator) bool {
	return Compare(l, other) == 0
}

// MajorSection returns the top-level section of l as text, e.g. "23" for
// 23.3.6 or "TR1 5" for TR1 5.1.
func MajorSection(l Locator) string {
	if l.IsSentinel() || len(l.Components) == 0 {
		return "??"
	}
	var sb strings.Builder
	if l.Prefix != "" {
		sb.WriteString(l.Prefix)
		sb.WriteByte(' ')
	}
	writeComponent(&sb, l.Components[0])
	return sb.String()
}
