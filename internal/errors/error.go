package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryRegistration Category = "registration"
	CategoryComposition  Category = "composition"
	CategoryPlatform     Category = "platform"
	CategoryTransform    Category = "transform"
	CategoryLoader       Category = "loader"
	CategoryServer       Category = "server"
	CategoryConfig       Category = "config"
)

// Location represents a position inside a declaration document.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ElementError is a structured error with an element name, source location,
// suggestions, and documentation.
type ElementError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the error type (composition, platform, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Element is the component type name the error concerns, if any.
	Element string

	// Location is the declaration document position, if known.
	Location *Location

	// Context contains surrounding document lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ElementError) Error() string {
	msg := e.Message
	if e.Element != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Element)
	}
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	if e.Wrapped != nil {
		msg = msg + ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return e.Code + ": " + msg
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ElementError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an ElementError with the same code.
func (e *ElementError) Is(target error) bool {
	t, ok := target.(*ElementError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithElement records the component type name the error concerns.
func (e *ElementError) WithElement(name string) *ElementError {
	e.Element = name
	return e
}

// WithLocation adds a document location to the error.
func (e *ElementError) WithLocation(file string, line, column int) *ElementError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ElementError) WithSuggestion(s string) *ElementError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *ElementError) WithDetail(d string) *ElementError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *ElementError) WithDetailf(format string, args ...any) *ElementError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *ElementError) Wrap(err error) *ElementError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates an ElementError from a registered error code.
func New(code string) *ElementError {
	template, ok := registry[code]
	if !ok {
		return &ElementError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ElementError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
	}
}

// Newf creates a new ElementError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *ElementError {
	return &ElementError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an ElementError.
func FromError(err error, code string) *ElementError {
	if err == nil {
		return nil
	}
	var ee *ElementError
	if stderrors.As(err, &ee) {
		return ee
	}
	return New(code).Wrap(err)
}

// HasCode reports whether any ElementError in err's chain carries code.
// Joined errors are searched too.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &ElementError{Code: code})
}

// CodeOf returns the code of the first ElementError in err's chain.
func CodeOf(err error) string {
	var ee *ElementError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ""
}
