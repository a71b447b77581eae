// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"zerofs.io/store/overlay"
	"zerofs.io/zerofs"
)

// RootDir is the shared holder of the current root directory: the one
// mutable anchor of an otherwise immutable tree. Readers observe a
// consistent snapshot; a write path works against a fork and installs
// its candidate replacement atomically at flush time.
//
// The critical section covers only the snapshot copy in Fork and the
// pointer swap in install. No I/O happens under the lock.
type RootDir struct {
	// store is the durable store the published tree lives in.
	store zerofs.BlockStore

	mu  sync.Mutex
	dir Dir
}

// RootDirConfig enumerates the options for constructing a RootDir.
type RootDirConfig struct {
	// Store is the durable block store backing the tree.
	Store zerofs.BlockStore
}

// NewRootDir returns a root holding a fresh empty directory.
func NewRootDir(config RootDirConfig) *RootDir {
	return &RootDir{
		store: config.Store,
		dir:   NewDir(config.Store),
	}
}

// LoadRootDir returns a root holding the directory identified by c in
// the configured store, typically a previously published root CID.
func LoadRootDir(ctx context.Context, config RootDirConfig, c cid.Cid) (*RootDir, error) {
	entity, err := LoadEntity(ctx, c, config.Store)
	if err != nil {
		return nil, err
	}
	dir, err := AsDir(entity)
	if err != nil {
		return nil, err
	}
	return &RootDir{store: config.Store, dir: dir}, nil
}

// Snapshot returns the current root directory. The returned value is
// immutable: later installs do not affect it.
func (r *RootDir) Snapshot() Dir {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dir
}

// Store returns the durable store backing the tree.
func (r *RootDir) Store() zerofs.BlockStore { return r.store }

// Fork clones the current root snapshot and re-anchors it in a fresh
// overlay: writes made through the fork accumulate in an ephemeral
// front store while reads fall through to the durable one.
func (r *RootDir) Fork() Dir {
	return r.Snapshot().WithStore(overlay.New(r.store))
}

// MakeHandle mints a handle to a fork of the root with the given
// rights. All writes made through the handle stay in the fork's
// overlay until the handle is flushed.
func (r *RootDir) MakeHandle(flags zerofs.DescriptorFlags) *Handle {
	return newHandle(r.Fork(), nil, flags, r, nil)
}

// install atomically replaces the root snapshot.
func (r *RootDir) install(dir Dir) {
	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()
}
