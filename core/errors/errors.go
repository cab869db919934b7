// Package errors provides the error taxonomy shared by the issue-list packages.
//
// Every failure is terminal for the unit of work in progress (one issue record,
// one section-table line, one snapshot row). Callers branch on the sentinel
// values with errors.Is and recover the context with errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies one entry of the error taxonomy.
type Kind int

// Error kinds.
const (
	KindUnknownStatus Kind = iota + 1
	KindSectionFormat
	KindMissingIssueNumber
	KindMissingStatus
	KindMissingTitle
	KindMissingSection
	KindMissingSubmitter
	KindMissingDate
	KindMissingDiscussion
	KindBadDate
	KindBadPriorityValue
	KindUnterminatedTag
	KindEmptyTag
	KindMismatchedTag
	KindMalformedSref
	KindMalformedIref
	KindUnresolvedIref
	KindSnapshotFormat
)

// Sentinel errors, one per kind.
var (
	ErrUnknownStatus      = errors.New("unknown status")
	ErrSectionFormat      = errors.New("section format error")
	ErrMissingIssueNumber = errors.New("missing issue number")
	ErrMissingStatus      = errors.New("missing issue status")
	ErrMissingTitle       = errors.New("missing issue title")
	ErrMissingSection     = errors.New("missing issue section")
	ErrMissingSubmitter   = errors.New("missing issue submitter")
	ErrMissingDate        = errors.New("missing issue date")
	ErrMissingDiscussion  = errors.New("missing issue discussion")
	ErrBadDate            = errors.New("bad date")
	ErrBadPriorityValue   = errors.New("bad priority value")
	ErrUnterminatedTag    = errors.New("unterminated tag")
	ErrEmptyTag           = errors.New("empty tag")
	ErrMismatchedTag      = errors.New("mismatched tag")
	ErrMalformedSref      = errors.New("malformed sref")
	ErrMalformedIref      = errors.New("malformed iref")
	ErrUnresolvedIref     = errors.New("unresolved iref")
	ErrSnapshotFormat     = errors.New("snapshot format error")
)

var sentinels = map[Kind]error{
	KindUnknownStatus:      ErrUnknownStatus,
	KindSectionFormat:      ErrSectionFormat,
	KindMissingIssueNumber: ErrMissingIssueNumber,
	KindMissingStatus:      ErrMissingStatus,
	KindMissingTitle:       ErrMissingTitle,
	KindMissingSection:     ErrMissingSection,
	KindMissingSubmitter:   ErrMissingSubmitter,
	KindMissingDate:        ErrMissingDate,
	KindMissingDiscussion:  ErrMissingDiscussion,
	KindBadDate:            ErrBadDate,
	KindBadPriorityValue:   ErrBadPriorityValue,
	KindUnterminatedTag:    ErrUnterminatedTag,
	KindEmptyTag:           ErrEmptyTag,
	KindMismatchedTag:      ErrMismatchedTag,
	KindMalformedSref:      ErrMalformedSref,
	KindMalformedIref:      ErrMalformedIref,
	KindUnresolvedIref:     ErrUnresolvedIref,
	KindSnapshotFormat:     ErrSnapshotFormat,
}

// Sentinel returns the sentinel error for k, or nil for an unknown kind.
func (k Kind) Sentinel() error {
	return sentinels[k]
}

func (k Kind) String() string {
	if err := sentinels[k]; err != nil {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StatusError reports a status label that is not in the publication table.
type StatusError struct {
	Status string // Label as written, before qualifiers were stripped
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unknown status %q", e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrUnknownStatus
}

// SectionError reports a malformed section number or section-table line.
type SectionError struct {
	Text    string // Offending input
	Line    int    // 1-based line in the section table, 0 when not from a table
	Message string
	Err     error // Underlying error, if any
}

func (e *SectionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("section table line %d: %s: %q", e.Line, e.Message, e.Text)
	}
	return fmt.Sprintf("section number %q: %s", e.Text, e.Message)
}

func (e *SectionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSectionFormat, e.Err}
	}
	return []error{ErrSectionFormat}
}

// IssueFileError reports a failure to parse one issue record.
type IssueFileError struct {
	Path    string // File the record came from
	Kind    Kind
	Message string
	Err     error // Underlying error, if any
}

func (e *IssueFileError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("error parsing issue file %s: %s: %v", e.Path, msg, e.Err)
	}
	return fmt.Sprintf("error parsing issue file %s: %s", e.Path, msg)
}

func (e *IssueFileError) Unwrap() []error {
	errs := []error{e.Kind.Sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MarkupError reports a fault while rewriting the text of one issue.
type MarkupError struct {
	Issue   int // Number of the issue whose text was being rewritten
	Kind    Kind
	Message string
}

func (e *MarkupError) Error() string {
	return fmt.Sprintf("%s in issue %d", e.Message, e.Issue)
}

func (e *MarkupError) Unwrap() error {
	return e.Kind.Sentinel()
}

// SnapshotError reports a malformed row in a snapshot history document.
type SnapshotError struct {
	Row     int // 1-based data row, header excluded
	Message string
	Err     error
}

func (e *SnapshotError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("snapshot row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("snapshot: %s", e.Message)
}

func (e *SnapshotError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSnapshotFormat, e.Err}
	}
	return []error{ErrSnapshotFormat}
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIssueFile creates an IssueFileError
func NewIssueFile(path string, kind Kind, message string) *IssueFileError {
	return &IssueFileError{
		Path:    path,
		Kind:    kind,
		Message: message,
	}
}

// NewMarkup creates a MarkupError with a formatted message.
func NewMarkup(issue int, kind Kind, format string, args ...any) *MarkupError {
	return &MarkupError{
		Issue:   issue,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// KindOf returns the taxonomy kind carried by err, or 0 if err carries none.
func KindOf(err error) Kind {
	for k := KindUnknownStatus; k <= KindSnapshotFormat; k++ {
		if errors.Is(err, sentinels[k]) {
			return k
		}
	}
	return 0
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join for convenience
func Join(errs ...error) error {
	return errors.Join(errs...)
}
