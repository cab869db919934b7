package markup

import (
	"fmt"
	"strconv"
	"strings"

	lwgerrors "github.com/cplusplus/lib-issues-software/core/errors"
	"github.com/cplusplus/lib-issues-software/core/issue"
)

const irefOpen = `<iref ref="`

// ResolveIssueRefs replaces every <iref ref="N"/> in text with an anchor to
// issue N. Only iref tags are touched, so text may hold arbitrary HTML such
// as a revision history. issues must be sorted by number.
func ResolveIssueRefs(text string, issues []issue.Issue) (string, error) {
	var out strings.Builder
	for {
		i := strings.Index(text, irefOpen)
		if i < 0 {
			out.WriteString(text)
			return out.String(), nil
		}
		out.WriteString(text[:i])

		j := strings.IndexByte(text[i:], '>')
		if j < 0 {
			return "", fmt.Errorf("%w: missing '>' after iref", lwgerrors.ErrUnterminatedTag)
		}
		tag := text[i : i+j+1]
		text = text[i+j+1:]

		ref, ok := Token{Kind: SelfClose, Name: "iref", Raw: tag}.Quoted()
		if !ok {
			return "", fmt.Errorf("%w: missing '\"' in %s", lwgerrors.ErrMalformedIref, tag)
		}
		n, err := strconv.Atoi(strings.TrimSpace(ref))
		if err != nil {
			return "", fmt.Errorf("%w: bad number in %s", lwgerrors.ErrMalformedIref, tag)
		}
		pos, found := issue.Search(issues, n)
		if !found {
			return "", fmt.Errorf("%w: could not find issue %d", lwgerrors.ErrUnresolvedIref, n)
		}
		out.WriteString(issues[pos].Anchor())
	}
}
