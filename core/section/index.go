package section

import (
	"bufio"
	"io"
	"slices"
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
)

// Index maps section tags such as "[vector]" to their locators.
//
// The index only grows: tags cited by issues but missing from the reference
// table are registered with the Sentinel locator, and an existing entry is
// never replaced once loading has finished.
type Index struct {
	entries map[string]Locator
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]Locator)}
}

// Lookup returns the locator for tag.
func (x *Index) Lookup(tag string) (Locator, bool) {
	loc, ok := x.entries[tag]
	return loc, ok
}

// Register adds tag with the Sentinel locator if it is not present.
// It reports whether the tag was added.
func (x *Index) Register(tag string) bool {
	if _, ok := x.entries[tag]; ok {
		return false
	}
	x.entries[tag] = Sentinel()
	return true
}

// Set records the locator for tag. It is used while loading the reference
// table, where a later line for the same tag wins.
func (x *Index) Set(tag string, loc Locator) {
	x.entries[tag] = loc
}

// Format renders tag with its locator, e.g. "23.3.6 [vector]".
// Tags that are not in the index render with the sentinel.
func (x *Index) Format(tag string) string {
	loc, ok := x.entries[tag]
	if !ok {
		loc = Sentinel()
	}
	return loc.String() + " " + tag
}

// Len returns the number of tags in the index.
func (x *Index) Len() int {
	return len(x.entries)
}

// Tags returns every tag ordered by locator, ties broken by tag text.
func (x *Index) Tags() []string {
	tags := make([]string, 0, len(x.entries))
	for tag := range x.entries {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, func(a, b string) int {
		if c := Compare(x.entries[a], x.entries[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return tags
}

// ReadIndex loads the section reference table. Each non-blank line holds a
// section number followed by a bracketed tag:
//
//	23.3.6 [vector]
//	TR1 5.1 [tr.rand]
//	TRDecimal 3.2 [trdec.types.types]
//
// Tags beginning "[tr." and "[trdec." carry the TR1 and TRDecimal prefixes
// whether or not the line spells the prefix out.
func ReadIndex(r io.Reader) (*Index, error) {
	x := NewIndex()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		tag, loc, err := parseEntry(text)
		if err != nil {
			if se, ok := err.(*lwgerrors.SectionError); ok {
				se.Line = line
				se.Text = text
				return nil, se
			}
			return nil, err
		}
		x.Set(tag, loc)
	}
	if err := sc.Err(); err != nil {
		return nil, lwgerrors.NewIO("read", "section table", err)
	}
	return x, nil
}

func parseEntry(text string) (string, Locator, error) {
	if !strings.HasSuffix(text, "]") {
		return "", Locator{}, &lwgerrors.SectionError{Message: "missing closing bracket"}
	}
	p := strings.LastIndexByte(text, '[')
	if p < 0 {
		return "", Locator{}, &lwgerrors.SectionError{Message: "missing section tag"}
	}
	tag := text[p:]
	if len(tag) <= 2 {
		return "", Locator{}, &lwgerrors.SectionError{Message: "empty section tag"}
	}

	loc, err := Parse(text[:p])
	if err != nil {
		return "", Locator{}, err
	}
	switch {
	case strings.HasPrefix(tag, "[trdec."):
		loc.Prefix = PrefixTRDecimal
	case strings.HasPrefix(tag, "[tr."):
		loc.Prefix = PrefixTR1
	}
	return tag, loc, nil
}
