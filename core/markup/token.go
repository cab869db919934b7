// Package markup rewrites the pseudo-tags of issue text into publishable
// HTML and resolves cross references between issues and sections.
//
// Text is first split into tokens by Tokenize. An Engine then rewrites the
// tokens of one issue into a fresh buffer, collecting duplicate links that
// are applied to the issue arena only once the whole issue succeeded.
package markup

import (
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
)

// TokenKind classifies a token.
type TokenKind int

// Token kinds.
const (
	Text      TokenKind = iota // Run of text outside any tag
	Open                       // <name ...>
	Close                      // </name>
	SelfClose                  // <name .../>
	Comment                    // <!-- ... -->
	End                        // </issue> or </revision>
)

func (k TokenKind) String() string {
	switch k {
	case Text:
		return "text"
	case Open:
		return "open"
	case Close:
		return "close"
	case SelfClose:
		return "self-close"
	case Comment:
		return "comment"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Token is one lexical unit of issue text.
type Token struct {
	Kind   TokenKind
	Name   string // Tag word without '/' markers, empty for Text and Comment
	Raw    string // Source text of the token
	Offset int    // Byte offset of Raw in the input
}

// Quoted returns the first double-quoted value inside a tag, such as the
// ref of <iref ref="123"/>.
func (t Token) Quoted() (string, bool) {
	k := strings.IndexByte(t.Raw, '"')
	if k < 0 {
		return "", false
	}
	l := strings.IndexByte(t.Raw[k+1:], '"')
	if l < 0 {
		return "", false
	}
	return t.Raw[k+1 : k+1+l], true
}

const (
	commentOpen  = "<!--"
	commentClose = "-->"
)

// Tokenize splits text into tokens. Concatenating the Raw fields of the
// result reproduces text exactly. A closing issue or revision tag ends the
// scan and everything after it is returned as one Text token.
//
// Errors are *errors.MarkupError values with Issue left at zero.
func Tokenize(text string) ([]Token, error) {
	var toks []Token
	pos := 0
	for pos < len(text) {
		i := strings.IndexByte(text[pos:], '<')
		if i < 0 {
			toks = append(toks, Token{Kind: Text, Raw: text[pos:], Offset: pos})
			break
		}
		if i > 0 {
			toks = append(toks, Token{Kind: Text, Raw: text[pos : pos+i], Offset: pos})
		}
		start := pos + i

		if strings.HasPrefix(text[start:], commentOpen) {
			end := strings.Index(text[start+len(commentOpen):], commentClose)
			if end < 0 {
				return nil, lwgerrors.NewMarkup(0, lwgerrors.KindUnterminatedTag, "missing '%s'", commentClose)
			}
			end += start + len(commentOpen) + len(commentClose)
			toks = append(toks, Token{Kind: Comment, Raw: text[start:end], Offset: start})
			pos = end
			continue
		}

		j := strings.IndexByte(text[start:], '>')
		if j < 0 {
			return nil, lwgerrors.NewMarkup(0, lwgerrors.KindUnterminatedTag, "missing '>'")
		}
		end := start + j + 1
		raw := text[start:end]

		fields := strings.Fields(raw[1 : len(raw)-1])
		if len(fields) == 0 || fields[0] == "/" {
			return nil, lwgerrors.NewMarkup(0, lwgerrors.KindEmptyTag, "unexpected %s", raw)
		}
		word := fields[0]

		switch {
		case word[0] == '/':
			name := word[1:]
			if name == "issue" || name == "revision" {
				toks = append(toks, Token{Kind: End, Name: name, Raw: raw, Offset: start})
				if end < len(text) {
					toks = append(toks, Token{Kind: Text, Raw: text[end:], Offset: end})
				}
				return toks, nil
			}
			toks = append(toks, Token{Kind: Close, Name: name, Raw: raw, Offset: start})
		case raw[len(raw)-2] == '/':
			toks = append(toks, Token{Kind: SelfClose, Name: strings.TrimSuffix(word, "/"), Raw: raw, Offset: start})
		default:
			toks = append(toks, Token{Kind: Open, Name: word, Raw: raw, Offset: start})
		}
		pos = end
	}
	return toks, nil
}
