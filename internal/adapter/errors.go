package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an adapter failure for the fallback path.
type ErrorKind string

const (
	KindTimeout ErrorKind = "timeout"
	KindNetwork ErrorKind = "network"
	KindHTTP    ErrorKind = "http"
	KindDecode  ErrorKind = "decode"
	KindUnknown ErrorKind = "unknown"
)

// Error wraps a provider failure with its classification and the preset
// that produced it.
type Error struct {
	Preset string
	Kind   ErrorKind
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("adapter %s error on preset %q: %v", e.Kind, e.Preset, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Classify buckets an error by inspection. Providers rarely return typed
// errors, so message substrings carry the classification.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return KindTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host") || strings.Contains(msg, "network"):
		return KindNetwork
	case strings.Contains(msg, "status code") || strings.Contains(msg, "api error") || strings.Contains(msg, "429") || strings.Contains(msg, "500"):
		return KindHTTP
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "decode") || strings.Contains(msg, "unexpected end"):
		return KindDecode
	default:
		return KindUnknown
	}
}

// WrapError attaches preset identity and classification to a provider
// failure.
func WrapError(preset string, err error) *Error {
	return &Error{Preset: preset, Kind: Classify(err), Cause: err}
}
