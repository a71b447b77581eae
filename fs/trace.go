// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"

	"zerofs.io/errors"
	"zerofs.io/log"
	"zerofs.io/path"
)

// A PathDir pairs a directory on a walked path with that directory's
// own name in its parent. A trace of /a/b/c that finds c yields
// [(dir a, "a"), (dir b, "b")]: every ancestor below the starting
// directory, excluding the final entity. The flush step folds the
// list bottom-up to republish the tree.
type PathDir struct {
	Dir  Dir
	Name path.Segment
}

// traceResult classifies the outcome of walking a path.
type traceResult interface {
	traceResult()
}

// traceFound: the full path resolved. Name is nil when the path was
// empty and the starting directory itself is the target.
type traceFound struct {
	entity   Entity
	name     *path.Segment
	pathdirs []PathDir
}

// traceIncomplete: the walk stopped because an entry is absent. When
// an intermediate entry is missing, depth is the number of segments
// successfully resolved; when only the final entry is missing, depth
// is the length of the path.
type traceIncomplete struct {
	pathdirs []PathDir
	depth    int
}

// traceNotADir: the entry at depth exists but the path requires
// descending through it and it is not a directory.
type traceNotADir struct {
	pathdirs []PathDir
	depth    int
}

func (traceFound) traceResult()      {}
func (traceIncomplete) traceResult() {}
func (traceNotADir) traceResult()    {}

// traceEntity walks p starting at d, resolving each intermediate
// segment through the link caches, and classifies the outcome. Only
// resolution errors are returned as errors; missing entries and kind
// mismatches are classifications, not failures.
//
// Symbolic links are tracked in the data model but traversal through
// them is not part of this revision: encountering one mid-path is an
// error rather than a silent skip.
func (d Dir) traceEntity(ctx context.Context, p path.Path) (traceResult, error) {
	const op = "fs.trace"
	dir := d
	var pathdirs []PathDir

	// First walk the intermediate directories, everything except the
	// last segment.
	segs := p.Segments()
	for depth := 0; depth+1 < len(segs); depth++ {
		seg := segs[depth]
		entity, ok, err := dir.GetEntity(ctx, seg)
		if err != nil {
			return nil, err
		}
		if !ok {
			return traceIncomplete{pathdirs: pathdirs, depth: depth}, nil
		}
		switch entity := entity.(type) {
		case Dir:
			dir = entity
		case Symlink:
			return nil, errors.E(op, p.Prefix(depth+1).Name(), errors.SymlinkNotSupported)
		default:
			return traceNotADir{pathdirs: pathdirs, depth: depth}, nil
		}
		pathdirs = append(pathdirs, PathDir{Dir: dir, Name: seg})
	}

	// Then the last segment names the target entity.
	if last, ok := p.Last(); ok {
		entity, ok, err := dir.GetEntity(ctx, last)
		if err != nil {
			return nil, err
		}
		if !ok {
			return traceIncomplete{pathdirs: pathdirs, depth: p.Len()}, nil
		}
		name := last
		return traceFound{entity: entity, name: &name, pathdirs: pathdirs}, nil
	}

	// Empty path: the starting directory itself is the target.
	return traceFound{entity: dir, pathdirs: pathdirs}, nil
}

// getOrCreateEntity traces p and, when the trace is incomplete,
// allocates empty directories for each missing intermediate segment
// and a fresh file (or directory, according to file) for the
// terminal. Nothing is persisted: the new nodes live only in the
// returned structure until a flush stores them.
func (d Dir) getOrCreateEntity(ctx context.Context, p path.Path, file bool) (Entity, *path.Segment, []PathDir, error) {
	const op = "fs.getOrCreateEntity"
	result, err := d.traceEntity(ctx, p)
	if err != nil {
		return nil, nil, nil, err
	}
	switch r := result.(type) {
	case traceFound:
		return r.entity, r.name, r.pathdirs, nil
	case traceNotADir:
		return nil, nil, nil, errors.E(op, offendingPrefix(p, r.depth).Name(), errors.NotADirectory)
	case traceIncomplete:
		pathdirs := r.pathdirs
		segs := p.Segments()
		for depth := r.depth; depth+1 < len(segs); depth++ {
			pathdirs = append(pathdirs, PathDir{Dir: NewDir(d.inner.store), Name: segs[depth]})
		}
		var entity Entity
		if file {
			entity = NewFile(d.inner.store)
		} else {
			entity = NewDir(d.inner.store)
		}
		last, _ := p.Last()
		log.Debug.Printf("fs: allocating %s at %s (%d new parents)", entity.Kind(), p, len(pathdirs)-len(r.pathdirs))
		return entity, &last, pathdirs, nil
	}
	return nil, nil, nil, errors.E(op, errors.Errorf("unhandled trace result %T", result))
}

// offendingPrefix returns the prefix of p that names the entry a
// trace stopped at: the depth resolved segments plus the entry
// itself.
func offendingPrefix(p path.Path, depth int) path.Path {
	n := depth + 1
	if n > p.Len() {
		n = p.Len()
	}
	return p.Prefix(n)
}
