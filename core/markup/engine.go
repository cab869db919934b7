package markup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
	"github.com/cplusplus/lib-issues-software/core/issue"
	"github.com/cplusplus/lib-issues-software/core/section"
)

// ErrUnsorted is returned by NewEngine for an arena that is not strictly
// ordered by issue number.
var ErrUnsorted = errors.New("issues are not sorted by number")

// Policy decides what TransformAll does when an issue fails.
type Policy int

const (
	// AbortOnError stops at the first failing issue.
	AbortOnError Policy = iota
	// SkipOnError leaves failing issues untransformed and carries on.
	SkipOnError
)

// Replacements for the pseudo-tags with fixed renderings.
var (
	openReplacement = map[string]string{
		"discussion": "<p><b>Discussion:</b></p>",
		"resolution": "<p><b>Proposed resolution:</b></p>",
		"rationale":  "<p><b>Rationale:</b></p>",
		"duplicate":  "",
		"note":       "<p><i>[",
	}
	closeReplacement = map[string]string{
		"discussion": "",
		"resolution": "",
		"rationale":  "",
		"duplicate":  "",
		"note":       "]</i></p>\n",
	}
)

// Engine rewrites the text of issues held in a number-sorted arena.
type Engine struct {
	issues []issue.Issue
	index  *section.Index
	done   []bool
}

// NewEngine returns an engine over issues, which must be sorted by number
// with no repeats. The engine mutates the slice elements in place and adds
// unknown section tags to idx.
func NewEngine(issues []issue.Issue, idx *section.Index) (*Engine, error) {
	if !issue.IsSortedByNumber(issues) {
		return nil, ErrUnsorted
	}
	return &Engine{
		issues: issues,
		index:  idx,
		done:   make([]bool, len(issues)),
	}, nil
}

// rewrite is the result of rewriting one field of an issue.
type rewrite struct {
	text  string
	links []int // arena positions of issues named in <duplicate> blocks
}

// Transform rewrites the body and resolution of the issue at arena position
// pos. Nothing is modified unless both fields rewrite cleanly; duplicate
// links are then recorded on both issues. Transforming an issue twice is a
// no-op.
func (e *Engine) Transform(pos int) error {
	if pos < 0 || pos >= len(e.issues) {
		return fmt.Errorf("issue position %d out of range", pos)
	}
	if e.done[pos] {
		return nil
	}

	is := &e.issues[pos]
	text, err := e.rewrite(is.Num, is.Text)
	if err != nil {
		return err
	}
	res, err := e.rewrite(is.Num, is.Resolution)
	if err != nil {
		return err
	}

	is.Text = text.text
	is.Resolution = res.text
	for _, t := range append(text.links, res.links...) {
		target := &e.issues[t]
		target.AddDuplicate(is.Anchor())
		is.AddDuplicate(target.Anchor())
	}
	e.done[pos] = true
	return nil
}

// TransformAll transforms every issue in arena order. Under SkipOnError it
// returns the numbers of the issues left untransformed together with their
// errors joined.
func (e *Engine) TransformAll(policy Policy) ([]int, error) {
	var (
		skipped []int
		errs    []error
	)
	for pos := range e.issues {
		if err := e.Transform(pos); err != nil {
			if policy == AbortOnError {
				return nil, err
			}
			skipped = append(skipped, e.issues[pos].Num)
			errs = append(errs, err)
		}
	}
	return skipped, errors.Join(errs...)
}

// Issues returns the arena.
func (e *Engine) Issues() []issue.Issue {
	return e.issues
}

func (e *Engine) rewrite(num int, text string) (rewrite, error) {
	var r rewrite
	if text == "" {
		return r, nil
	}

	toks, err := Tokenize(text)
	if err != nil {
		var me *lwgerrors.MarkupError
		if errors.As(err, &me) {
			me.Issue = num
		}
		return r, err
	}

	var (
		out   strings.Builder
		stack []string
	)
	out.Grow(len(text))

	top := func() string {
		if len(stack) == 0 {
			return ""
		}
		return stack[len(stack)-1]
	}

	for _, tok := range toks {
		switch tok.Kind {
		case Text:
			out.WriteString(tok.Raw)

		case Comment, End:

		case Open:
			stack = append(stack, tok.Name)
			if rep, ok := openReplacement[tok.Name]; ok {
				out.WriteString(rep)
			} else {
				out.WriteString(tok.Raw)
			}

		case Close:
			if len(stack) == 0 {
				return r, lwgerrors.NewMarkup(num, lwgerrors.KindMismatchedTag,
					"mismatched tags: had no open tag, closing tag was %s", tok.Name)
			}
			if open := top(); open != tok.Name {
				return r, lwgerrors.NewMarkup(num, lwgerrors.KindMismatchedTag,
					"mismatched tags: open tag was %s, closing tag was %s", open, tok.Name)
			}
			stack = stack[:len(stack)-1]
			if rep, ok := closeReplacement[tok.Name]; ok {
				out.WriteString(rep)
			} else {
				out.WriteString(tok.Raw)
			}

		case SelfClose:
			switch tok.Name {
			case "sref":
				tag, ok := tok.Quoted()
				if !ok {
					return r, lwgerrors.NewMarkup(num, lwgerrors.KindMalformedSref, "missing '\"' in sref")
				}
				e.index.Register(tag)
				out.WriteString(e.index.Format(tag))

			case "iref":
				t, err := e.resolve(num, tok)
				if err != nil {
					return r, err
				}
				if top() == "duplicate" {
					r.links = append(r.links, t)
				} else {
					out.WriteString(e.issues[t].Anchor())
				}

			default:
				out.WriteString(tok.Raw)
			}
		}
	}

	r.text = out.String()
	return r, nil
}

// resolve finds the arena position of the issue named by an iref token.
func (e *Engine) resolve(num int, tok Token) (int, error) {
	ref, ok := tok.Quoted()
	if !ok {
		return 0, lwgerrors.NewMarkup(num, lwgerrors.KindMalformedIref, "missing '\"' in iref")
	}
	n, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil {
		return 0, lwgerrors.NewMarkup(num, lwgerrors.KindMalformedIref, "bad number %q in iref", ref)
	}
	t, found := issue.Search(e.issues, n)
	if !found {
		return 0, lwgerrors.NewMarkup(num, lwgerrors.KindUnresolvedIref, "could not find issue %d for iref", n)
	}
	return t, nil
}
