package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies ingestion and analytics failures.
type ErrorKind string

const (
	KindMalformedInput       ErrorKind = "MalformedInput"
	KindInsufficientData     ErrorKind = "InsufficientData"
	KindInvalidConfiguration ErrorKind = "InvalidConfiguration"
	KindEmptyDataset         ErrorKind = "EmptyDataset"
	KindSizeLimitExceeded    ErrorKind = "SizeLimitExceeded"
	KindNoDataset            ErrorKind = "NoDataset"
)

// Rejection rules.
const (
	RuleBlankName      = "blank_name"
	RuleNotNumeric     = "not_numeric"
	RuleNegativeValue  = "negative_value"
	RuleInvalidIndex   = "invalid_index"
	RuleDuplicateIndex = "duplicate_index"
)

// Rejection describes one brand or row that failed validation.
type Rejection struct {
	Row    int    `json:"row"`
	Brand  string `json:"brand,omitempty"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

func (r Rejection) String() string {
	if r.Brand != "" {
		return fmt.Sprintf("row %d (%s): %s", r.Row, r.Brand, r.Detail)
	}
	return fmt.Sprintf("row %d: %s", r.Row, r.Detail)
}

// Error is a structured, user-facing failure.
type Error struct {
	Kind       ErrorKind
	Message    string
	Rejections []Rejection
}

var (
	ErrMalformedInput       = &Error{Kind: KindMalformedInput}
	ErrInsufficientData     = &Error{Kind: KindInsufficientData}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrEmptyDataset         = &Error{Kind: KindEmptyDataset}
	ErrSizeLimitExceeded    = &Error{Kind: KindSizeLimitExceeded}
	ErrNoDataset            = &Error{Kind: KindNoDataset}
)

func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if len(e.Rejections) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	parts := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("%s: %s [%s]", e.Kind, e.Message, strings.Join(parts, "; "))
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrEmptyDataset)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithRejections returns e carrying the given row-level detail.
func (e *Error) WithRejections(rejections []Rejection) *Error {
	e.Rejections = rejections
	return e
}

// AsError extracts the structured error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
