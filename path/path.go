// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package path provides tools for parsing and printing path names.
// A path is a sequence of slash-separated segments under a single
// root, such as /public/notes. Segment names are restricted to an
// alphanumeric alphabet and compare case-insensitively: /A/b/C and
// /a/B/c name the same item.
package path // import "zerofs.io/path"

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"zerofs.io/errors"
	"zerofs.io/zerofs"
)

// Separator separates the segments of a printed path.
const Separator = "/"

var validSegment = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// fold returns the case-folded form of a name. A Caser carries
// transform state, so each fold uses a fresh one rather than sharing
// a package-level value across goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// A Segment is one element of a path: a named element, "." or "..".
// The zero Segment is not valid; construct segments with ParseSegment
// or use CurrentDir and ParentDir.
type Segment struct {
	name string
}

// The two special segments.
var (
	// CurrentDir is the "." segment.
	CurrentDir = Segment{"."}
	// ParentDir is the ".." segment.
	ParentDir = Segment{".."}
)

// ParseSegment parses a single path segment. The name must be ".",
// ".." or a non-empty alphanumeric string.
func ParseSegment(name string) (Segment, error) {
	const op = "path.ParseSegment"
	switch name {
	case ".":
		return CurrentDir, nil
	case "..":
		return ParentDir, nil
	}
	if !validSegment.MatchString(name) {
		return Segment{}, errors.E(op, errors.InvalidPathSegment, errors.Errorf("%q", name))
	}
	return Segment{name}, nil
}

// IsCurrentDir reports whether s is the "." segment.
func (s Segment) IsCurrentDir() bool { return s.name == "." }

// IsParentDir reports whether s is the ".." segment.
func (s Segment) IsParentDir() bool { return s.name == ".." }

// IsNamed reports whether s is a named segment rather than "." or "..".
func (s Segment) IsNamed() bool { return !s.IsCurrentDir() && !s.IsParentDir() }

func (s Segment) String() string { return s.name }

// Fold returns the case-folded form of the segment, used for all
// comparison and as the map key form. Named segments that differ only
// in case fold to the same string.
func (s Segment) Fold() string {
	return fold(s.name)
}

// Equal reports whether two segments are equal under case folding.
func (s Segment) Equal(t Segment) bool {
	return s.Fold() == t.Fold()
}

// A Path is an ordered sequence of segments. The zero Path is the
// empty path, naming the directory it is evaluated against.
type Path struct {
	segs []Segment
}

// Parse parses a path name into its segments. The leading slash is
// optional and empty segments between separators are ignored, so
// "/a//b/" parses the same as "a/b".
func Parse(name string) (Path, error) {
	var segs []Segment
	for _, elem := range strings.Split(name, Separator) {
		if elem == "" {
			continue
		}
		seg, err := ParseSegment(elem)
		if err != nil {
			return Path{}, err
		}
		segs = append(segs, seg)
	}
	return Path{segs}, nil
}

// FromSegments builds a path from segment names, validating each.
func FromSegments(names ...string) (Path, error) {
	segs := make([]Segment, 0, len(names))
	for _, name := range names {
		seg, err := ParseSegment(name)
		if err != nil {
			return Path{}, err
		}
		segs = append(segs, seg)
	}
	return Path{segs}, nil
}

// Len returns the number of segments in the path.
func (p Path) Len() int { return len(p.segs) }

// IsEmpty reports whether the path has no segments.
func (p Path) IsEmpty() bool { return len(p.segs) == 0 }

// Segments returns the segments of the path in order.
// The returned slice must not be modified.
func (p Path) Segments() []Segment { return p.segs }

// First returns the first segment. The ok result is false for the
// empty path.
func (p Path) First() (Segment, bool) {
	if len(p.segs) == 0 {
		return Segment{}, false
	}
	return p.segs[0], true
}

// Last returns the last segment. The ok result is false for the
// empty path.
func (p Path) Last() (Segment, bool) {
	if len(p.segs) == 0 {
		return Segment{}, false
	}
	return p.segs[len(p.segs)-1], true
}

// Slice returns the sub-path covering segments [i, j).
// It panics if the range is out of bounds, like a slice expression.
func (p Path) Slice(i, j int) Path {
	return Path{p.segs[i:j]}
}

// Prefix returns the sub-path covering the first n segments.
func (p Path) Prefix(n int) Path {
	return p.Slice(0, n)
}

// Append returns a new path with seg appended. p is unchanged.
func (p Path) Append(seg Segment) Path {
	segs := make([]Segment, 0, len(p.segs)+1)
	segs = append(segs, p.segs...)
	return Path{append(segs, seg)}
}

// String prints the path with a leading slash and slash-separated
// segments. The empty path prints as "/". For canonical paths,
// Parse(p.String()) yields a path equal to p.
func (p Path) String() string {
	if len(p.segs) == 0 {
		return Separator
	}
	var b strings.Builder
	for _, seg := range p.segs {
		b.WriteString(Separator)
		b.WriteString(seg.name)
	}
	return b.String()
}

// Name returns the string representation with type zerofs.PathName,
// for use in error reporting and at the wire boundary.
func (p Path) Name() zerofs.PathName {
	return zerofs.PathName(p.String())
}

// Fold returns the case-folded printed form of the path. Two paths
// that are Equal fold to the same string, so Fold is usable as a map
// or hash key.
func (p Path) Fold() string {
	if len(p.segs) == 0 {
		return Separator
	}
	var b strings.Builder
	for _, seg := range p.segs {
		b.WriteString(Separator)
		b.WriteString(seg.Fold())
	}
	return b.String()
}

// Equal reports whether two paths have the same segments under case
// folding.
func (p Path) Equal(q Path) bool {
	if len(p.segs) != len(q.segs) {
		return false
	}
	for i, seg := range p.segs {
		if !seg.Equal(q.segs[i]) {
			return false
		}
	}
	return true
}

// Compare returns -1, 0, or 1 according to whether p is less than,
// equal to, or greater than q. The comparison is segment-wise on the
// folded forms.
func (p Path) Compare(q Path) int {
	for i, seg := range p.segs {
		if i >= len(q.segs) {
			return 1
		}
		a, b := seg.Fold(), q.segs[i].Fold()
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	if len(p.segs) < len(q.segs) {
		return -1
	}
	return 0
}

// Canonicalize removes interior "." segments and folds ".." segments
// by popping the prior segment. A "." at the start of the path and a
// ".." that would pop past the root are rejected. Canonicalization is
// idempotent.
func (p Path) Canonicalize() (Path, error) {
	const op = "path.Canonicalize"
	out := make([]Segment, 0, len(p.segs))
	for i, seg := range p.segs {
		switch {
		case seg.IsCurrentDir():
			if i == 0 {
				return Path{}, errors.E(op, p.Name(), errors.LeadingCurrentDir)
			}
			// Interior "." has no effect.
		case seg.IsParentDir():
			if len(out) == 0 {
				return Path{}, errors.E(op, p.Name(), errors.OutOfBoundsParentDir)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return Path{out}, nil
}
