/*
Copyright 2024 The Hivebus Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package errs defines the typed error kinds used across hivebus, so
// callers can distinguish recoverable per-record failures (schema,
// decode, metadata) from bugs. Every kind wraps a human-readable
// message plus enough context to log meaningfully, in the same
// spirit as agent.AgentError in the teacher repo this module is
// derived from.
package errs

import "fmt"

// Kind is a machine-readable error classification. See spec.md §7.
type Kind int

const (
	// KindUnknown is the zero value; never returned by this package.
	KindUnknown Kind = iota
	KindSchemaInferenceFailed
	KindSchemaMismatch
	KindDecodeFailed
	KindIncompatibleAppend
	KindTopicNotSet
	KindFlagNotSet
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindSchemaInferenceFailed:
		return "SchemaInferenceFailed"
	case KindSchemaMismatch:
		return "SchemaMismatch"
	case KindDecodeFailed:
		return "DecodeFailed"
	case KindIncompatibleAppend:
		return "IncompatibleAppend"
	case KindTopicNotSet:
		return "TopicNotSet"
	case KindFlagNotSet:
		return "FlagNotSet"
	case KindEmpty:
		return "Empty"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned for every Kind above.
type Error struct {
	Kind Kind
	Msg  string
	// Cause is the underlying error, if any (e.g. a json.Unmarshal
	// failure). May be nil.
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so
// callers can use errors.Is(err, errs.New(errs.KindTopicNotSet, ""))
// or more conveniently errs.IsKind(err, errs.KindTopicNotSet).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error of the given
// Kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
