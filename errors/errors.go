// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used by all zerofs software.
package errors

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"
	"runtime"

	"zerofs.io/log"
	"zerofs.io/zerofs"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Path is the path name of the item being accessed. For kinds
	// that report how far a trace reached, it is the prefix up to and
	// including the entry at which the trace stopped.
	Path zerofs.PathName
	// DID is the identity of the principal attempting the operation.
	DID zerofs.DID
	// Op is the operation being performed, usually the name of the
	// method being invoked (OpenAt, Flush, etc.).
	Op string
	// Kind is the class of error, such as a permission failure,
	// or Other if its class is unknown or irrelevant.
	Kind Kind
	// The underlying error that triggered this one, if any.
	Err error
}

var (
	_       error                      = (*Error)(nil)
	_       encoding.BinaryUnmarshaler = (*Error)(nil)
	_       encoding.BinaryMarshaler   = (*Error)(nil)
	zeroErr Error
)

// Separator is the string used to separate nested errors. By
// default, to make errors easier on the eye, nested errors are
// indented on a new line. A server may instead choose to keep each
// error on a single line by modifying the separator string, perhaps
// to ":: ".
var Separator = ":\n\t"

// Kind defines the kind of error this is. The taxonomy is flat and the
// identifiers are stable: callers at the wire boundary dispatch on
// them, and the ordering of checks in open_at is part of the contract.
type Kind uint8

// Kinds of errors.
const (
	Other                Kind = iota // Unclassified error.
	IO                               // External I/O error.
	InvalidPathSegment               // Segment violates the accepted alphabet.
	LeadingCurrentDir                // "." at the start of a path during canonicalization.
	OutOfBoundsParentDir             // ".." that would pop past the root.
	NotAFile                         // Entity at the path is not a file.
	NotADirectory                    // Entity at the path is not a directory.
	NotAFileOrDir                    // Entity at the path is neither file nor directory.
	NotFound                         // Path tail is missing and Create was not requested.
	NeedAtLeastReadFlag              // Descriptor flags for a new handle lack Read.
	NotAllowedToReadDir              // The opening handle lacks Read.
	PermissionEscalation             // Child handle requests rights the parent lacks.
	ExclusiveButExists               // Exclusive requested but the entity exists.
	DirectoryButNotADir              // Directory requested but the entity is a file.
	InvalidFlagCombination           // Directory combined with Create, Exclusive or Truncate.
	SymlinkNotSupported              // Symbolic link encountered during a trace.
	InvalidOpenFlag                  // Reserved open flag bits set on deserialization.
	InvalidEntityFlag                // Reserved descriptor flag bits set on deserialization.
	InvalidPathFlag                  // Reserved path flag bits set on deserialization.
	Store                            // Propagated from the block store.
	Ucan                             // Propagated from the UCAN verifier.
	Did                              // Malformed or unusable DID.
	WrongDescriptorFlags             // A stream operation the handle's flags do not permit.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case IO:
		return "I/O error"
	case InvalidPathSegment:
		return "invalid path segment"
	case LeadingCurrentDir:
		return "leading '.' in path"
	case OutOfBoundsParentDir:
		return "out of bounds '..' in path"
	case NotAFile:
		return "item is not a file"
	case NotADirectory:
		return "item is not a directory"
	case NotAFileOrDir:
		return "item is not a file or directory"
	case NotFound:
		return "item does not exist"
	case NeedAtLeastReadFlag:
		return "descriptor flags need at least read"
	case NotAllowedToReadDir:
		return "not allowed to read directory"
	case PermissionEscalation:
		return "child permission escalation"
	case ExclusiveButExists:
		return "exclusive requested but item already exists"
	case DirectoryButNotADir:
		return "directory requested but item is not a directory"
	case InvalidFlagCombination:
		return "invalid open flags combination"
	case SymlinkNotSupported:
		return "symbolic links not supported in traces"
	case InvalidOpenFlag:
		return "invalid open flag value"
	case InvalidEntityFlag:
		return "invalid descriptor flag value"
	case InvalidPathFlag:
		return "invalid path flag value"
	case Store:
		return "block store error"
	case Ucan:
		return "ucan error"
	case Did:
		return "did error"
	case WrongDescriptorFlags:
		return "operation not permitted by descriptor flags"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments.
// The type of each argument determines its meaning.
// If more than one argument of a given type is presented,
// only the last one is recorded.
//
// The types are:
//
//	zerofs.PathName
//		The path name of the item being accessed.
//	zerofs.DID
//		The identity of the principal attempting the operation.
//	string
//		The operation being performed, usually the method
//		being invoked (OpenAt, Flush, etc.)
//	errors.Kind
//		The class of error, such as a permission failure.
//	error
//		The underlying error that triggered this one.
//
// If the error is printed, only those items that have been
// set to non-zero values will appear in the result.
//
// If Kind is not specified or Other, we set it to the Kind of
// the underlying error.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case zerofs.PathName:
			e.Path = arg
		case zerofs.DID:
			e.DID = arg
		case string:
			e.Op = arg
		case Kind:
			e.Kind = arg
		case *Error:
			// Make a copy so the dedup below cannot mutate the
			// caller's value.
			inner := *arg
			e.Err = &inner
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Printf("errors.E: bad call from %s:%d: %v", file, line, args)
			return Errorf("unknown type %T, value %v in error call", arg, arg)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	// The previous error was also one of ours. Suppress duplications
	// so the message won't contain the same kind, path or principal
	// twice.
	if prev.Path == e.Path {
		prev.Path = ""
	}
	if prev.DID == e.DID {
		prev.DID = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	// If this error has Kind unset or Other, pull up the inner one.
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

// pad appends str to the buffer if the buffer already has some data.
func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Path != "" {
		b.WriteString(string(e.Path))
	}
	if e.DID != "" {
		pad(b, ", ")
		b.WriteString("principal ")
		b.WriteString(string(e.DID))
	}
	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(e.Op)
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		// Indent on new line if we are cascading non-empty zerofs errors.
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Is reports whether err is an *Error of the given Kind.
// If err is nil then Is returns false. If err's Kind is Other, the
// chain of underlying errors is consulted.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// Match compares its two error arguments. It can be used to check
// for expected errors in tests. Both arguments must have underlying
// type *Error or Match will return false. Otherwise it returns true
// iff every non-zero element of the first error is equal to the
// corresponding element of the second.
// If the Err field is a *Error, Match recurs on that field;
// otherwise it compares the strings returned by the Error methods.
// Elements that are in the second argument but not present in
// the first are ignored.
func Match(err1, err2 error) bool {
	e1, ok := err1.(*Error)
	if !ok {
		return false
	}
	e2, ok := err2.(*Error)
	if !ok {
		return false
	}
	if e1.Path != "" && e2.Path != e1.Path {
		return false
	}
	if e1.DID != "" && e2.DID != e1.DID {
		return false
	}
	if e1.Op != "" && e2.Op != e1.Op {
		return false
	}
	if e1.Kind != Other && e2.Kind != e1.Kind {
		return false
	}
	if e1.Err != nil {
		if e2.Err == nil {
			return false
		}
		if _, ok := e1.Err.(*Error); ok {
			return Match(e1.Err, e2.Err)
		}
		if e1.Err.Error() != e2.Err.Error() {
			return false
		}
	}
	return true
}

// Recreate the errors.New functionality of the standard Go errors package
// so we can create simple text errors when needed.

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to the E function.
func Str(text string) error {
	return &errorString{text}
}

// errorString is a trivial implementation of error.
type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf, but allows clients to import only
// this package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// MarshalAppend marshals err into a byte slice. The result is appended to b,
// which may be nil.
// It returns the argument slice unchanged if the error is nil.
func (e *Error) MarshalAppend(b []byte) []byte {
	if e == nil {
		return b
	}
	b = appendString(b, string(e.Path))
	b = appendString(b, string(e.DID))
	b = appendString(b, e.Op)
	var tmp [16]byte // For use by PutVarint.
	N := binary.PutVarint(tmp[:], int64(e.Kind))
	b = append(b, tmp[:N]...)
	b = MarshalErrorAppend(e.Err, b)
	return b
}

// MarshalBinary marshals its receiver into a byte slice, which it returns.
// It returns nil if the error is nil. The returned error is always nil.
func (e *Error) MarshalBinary() ([]byte, error) {
	return e.MarshalAppend(nil), nil
}

// MarshalErrorAppend marshals an arbitrary error into a byte slice.
// The result is appended to b, which may be nil.
// It returns the argument slice unchanged if the error is nil.
// If the error is not an *Error, it just records the result of err.Error().
// Otherwise it encodes the full Error struct.
func MarshalErrorAppend(err error, b []byte) []byte {
	if err == nil {
		return b
	}
	if e, ok := err.(*Error); ok {
		// This is an errors.Error. Mark it as such.
		b = append(b, 'E')
		return e.MarshalAppend(b)
	}
	// Ordinary error.
	b = append(b, 'e')
	b = appendString(b, err.Error())
	return b
}

// MarshalError marshals an arbitrary error and returns the byte slice.
// If the error is nil, it returns nil.
// If the error is not an *Error, it just records the result of err.Error().
// Otherwise it encodes the full Error struct.
func MarshalError(err error) []byte {
	return MarshalErrorAppend(err, nil)
}

// UnmarshalBinary unmarshals the byte slice into the receiver, which must be non-nil.
// The returned error is always nil.
func (e *Error) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	data, b := getBytes(b)
	if data != nil {
		e.Path = zerofs.PathName(data)
	}
	data, b = getBytes(b)
	if data != nil {
		e.DID = zerofs.DID(data)
	}
	data, b = getBytes(b)
	if data != nil {
		e.Op = string(data)
	}
	k, N := binary.Varint(b)
	e.Kind = Kind(k)
	b = b[N:]
	e.Err = UnmarshalError(b)
	return nil
}

// UnmarshalError unmarshals the byte slice into an error value.
// The byte slice must have been created by MarshalError or
// MarshalErrorAppend.
// If the encoded error was of type *Error, the returned error value
// will have that underlying type. Otherwise it will be just a simple
// value that implements the error interface.
func UnmarshalError(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	code := b[0]
	b = b[1:]
	switch code {
	case 'e':
		// Plain error.
		var data []byte
		data, b = getBytes(b)
		if len(b) != 0 {
			log.Printf("Unmarshal error: trailing bytes")
		}
		return Str(string(data))
	case 'E':
		// Error value.
		var err Error
		err.UnmarshalBinary(b)
		return &err
	default:
		log.Printf("Unmarshal error: corrupt data %q", b)
		return Str(string(b))
	}
}

func appendString(b []byte, str string) []byte {
	var tmp [16]byte // For use by PutUvarint.
	N := binary.PutUvarint(tmp[:], uint64(len(str)))
	b = append(b, tmp[:N]...)
	b = append(b, str...)
	return b
}

// getBytes unmarshals the byte slice at b (uvarint count followed by bytes)
// and returns the slice followed by the remaining bytes.
// If there is insufficient data, both return values will be nil.
func getBytes(b []byte) (data, remaining []byte) {
	u, N := binary.Uvarint(b)
	if len(b) < N+int(u) {
		log.Printf("Unmarshal error: bad encoding")
		return nil, nil
	}
	if N == 0 {
		log.Printf("Unmarshal error: bad encoding")
		return nil, b
	}
	return b[N : N+int(u)], b[N+int(u):]
}
