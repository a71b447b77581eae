// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"strings"

	"zerofs.io/errors"
	"zerofs.io/path"
	"zerofs.io/zerofs"
)

// A Handle is an opened entity bound to everything needed to
// republish it: the entity itself, its name in its parent, the rights
// it was opened with, the RootDir it descends from and the chain of
// ancestor directories walked to reach it. The handle performs no I/O
// of its own.
//
// Two handles to the same CID are equivalent but not identical; a
// clone is shallow and cheap.
type Handle struct {
	inner *handleInner
}

type handleInner struct {
	// entity is the opened entity.
	entity Entity

	// name is the segment under which entity appears in its parent,
	// nil only for the root.
	name *path.Segment

	// flags are the rights of this handle.
	flags zerofs.DescriptorFlags

	// root anchors the handle to the live tree.
	root *RootDir

	// pathdirs is the ancestor chain below the root, in descent
	// order, excluding the entity itself.
	pathdirs []PathDir
}

func newHandle(entity Entity, name *path.Segment, flags zerofs.DescriptorFlags, root *RootDir, pathdirs []PathDir) *Handle {
	return &Handle{inner: &handleInner{
		entity:   entity,
		name:     name,
		flags:    flags,
		root:     root,
		pathdirs: pathdirs,
	}}
}

// Entity returns the entity the handle references.
func (h *Handle) Entity() Entity { return h.inner.entity }

// Name returns the entity's name in its parent. The ok result is
// false for the root.
func (h *Handle) Name() (path.Segment, bool) {
	if h.inner.name == nil {
		return path.Segment{}, false
	}
	return *h.inner.name, true
}

// Flags returns the rights the handle carries.
func (h *Handle) Flags() zerofs.DescriptorFlags { return h.inner.flags }

// Root returns the RootDir the handle descends from.
func (h *Handle) Root() *RootDir { return h.inner.root }

// PathDirs returns the ancestor chain below the root, excluding the
// entity itself. The returned slice must not be modified.
func (h *Handle) PathDirs() []PathDir { return h.inner.pathdirs }

// Clone returns a shallow copy sharing the handle's state.
func (h *Handle) Clone() *Handle {
	return &Handle{inner: h.inner}
}

// Dir narrows the handle's entity to a directory.
func (h *Handle) Dir() (Dir, error) {
	return AsDir(h.inner.entity)
}

// File narrows the handle's entity to a file.
func (h *Handle) File() (File, error) {
	return AsFile(h.inner.entity)
}

// setEntity replaces the handle's entity. Clones made earlier keep
// observing the previous entity.
func (h *Handle) setEntity(e Entity) {
	inner := *h.inner
	inner.entity = e
	h.inner = &inner
}

// pathName reconstructs the printed path of the handle's entity from
// the ancestor chain, for error reporting and authorization.
func (h *Handle) pathName() zerofs.PathName {
	var b strings.Builder
	for _, pd := range h.inner.pathdirs {
		b.WriteString(path.Separator)
		b.WriteString(pd.Name.String())
	}
	if h.inner.name != nil {
		b.WriteString(path.Separator)
		b.WriteString(h.inner.name.String())
	}
	if b.Len() == 0 {
		return zerofs.PathName(path.Separator)
	}
	return zerofs.PathName(b.String())
}

// childPathDirs builds the ancestor chain for a child opened from h:
// h's own chain, then h itself when it is a named directory, then the
// directories the child's trace walked.
func (h *Handle) childPathDirs(trace []PathDir) ([]PathDir, error) {
	if h.inner.name == nil && len(h.inner.pathdirs) == 0 {
		return trace, nil
	}
	dir, err := AsDir(h.inner.entity)
	if err != nil {
		return nil, errors.E(errors.NotADirectory)
	}
	chain := make([]PathDir, 0, len(h.inner.pathdirs)+1+len(trace))
	chain = append(chain, h.inner.pathdirs...)
	if h.inner.name != nil {
		chain = append(chain, PathDir{Dir: dir, Name: *h.inner.name})
	}
	return append(chain, trace...), nil
}
