// Package apperr defines the error taxonomy of the verification pipeline.
//
// Transport and parse errors are absorbed at the work-unit boundary and
// recorded as inconclusive verdicts. Configuration errors are fatal at startup.
package apperr

import (
	"errors"
	"fmt"
)

// TransportError is a network or HTTP failure talking to the evidence source or the oracle
type TransportError struct {
	Op         string // e.g. "wikipedia search"
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: http %d: %v", e.Op, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s: http %d", e.Op, e.StatusCode)
	}
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransport wraps err as a transport failure of op
func NewTransport(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// NewHTTPStatus reports an unexpected HTTP status from op
func NewHTTPStatus(op string, statusCode int, body string) *TransportError {
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &TransportError{Op: op, StatusCode: statusCode, Err: err}
}

// ParseError means oracle output was not valid structured data or carried an out-of-enum verdict
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse oracle output: " + e.Err.Error()
	}
	return "parse oracle output"
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigurationError is a startup problem, such as the oracle strategy without credentials
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return "configuration: " + e.Field + ": " + e.Message
	}
	return "configuration: " + e.Message
}

// NewConfiguration builds a configuration error
func NewConfiguration(field, msg string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: msg}
}

// IsTransport reports whether err is (or wraps) a TransportError
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Kind names the class of err for error markers written to the output
func Kind(err error) string {
	var (
		te *TransportError
		pe *ParseError
		ce *ConfigurationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return "TransportError"
	case errors.As(err, &pe):
		return "ParseError"
	case errors.As(err, &ce):
		return "ConfigurationError"
	default:
		return "Error"
	}
}

// Marker renders err as the text recorded in place of evidence
func Marker(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("ERROR: %s: %v", Kind(err), err)
}
