// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disk implements a block store backed by the local file
// system, with an in-memory LRU over recently read blocks.
package disk // import "zerofs.io/store/disk"

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/ipfs/go-cid"

	"zerofs.io/cache"
	"zerofs.io/errors"
	"zerofs.io/log"
	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

// DefaultCacheEntries is the number of blocks kept in the read cache
// when no size is configured.
const DefaultCacheEntries = 256

// Store is a disk-backed content-addressed block store. Blocks are
// fanned out into subdirectories to keep directories small, and
// writes go through a temporary file and a rename so that a block
// file is always complete.
type Store struct {
	dir string

	// mu serializes writers of the same block; reads are lock-free
	// apart from the cache's own lock.
	mu     sync.Mutex
	blocks *cache.LRU // cid key -> []byte, read cache.
}

var (
	_ zerofs.BlockStore  = (*Store)(nil)
	_ zerofs.BlockWriter = (*Store)(nil)
)

// New returns a store rooted at dir, creating it if necessary.
// cacheEntries bounds the read cache; zero selects the default.
func New(dir string, cacheEntries int) (*Store, error) {
	const op = "store/disk.New"
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	if cacheEntries <= 0 {
		cacheEntries = DefaultCacheEntries
	}
	log.Info.Printf("store/disk: serving blocks from %s (read cache up to %s)",
		dir, humanize.IBytes(uint64(cacheEntries)*storeutil.DefaultBlockMaxSize))
	return &Store{
		dir:    dir,
		blocks: cache.NewLRU(cacheEntries),
	}, nil
}

// blockPath returns the file path for a block. The fan-out key is the
// tail of the CID string; the head is a shared multibase/version
// prefix and would put every block in one subdirectory.
func (s *Store) blockPath(c cid.Cid) string {
	str := c.String()
	return filepath.Join(s.dir, str[len(str)-2:], str)
}

// PutNode implements zerofs.BlockStore.
func (s *Store) PutNode(ctx context.Context, node zerofs.Node) (cid.Cid, error) {
	data, err := storeutil.MarshalNode(node)
	if err != nil {
		return cid.Undef, err
	}
	c, err := storeutil.SumCid(zerofs.DagCBOR, data)
	if err != nil {
		return cid.Undef, err
	}
	return c, s.WriteBlock(ctx, c, data)
}

// GetNode implements zerofs.BlockStore.
func (s *Store) GetNode(ctx context.Context, c cid.Cid, v interface{}) error {
	data, err := s.GetRawBlock(ctx, c)
	if err != nil {
		return err
	}
	return storeutil.UnmarshalNode(data, v)
}

// PutBytes implements zerofs.BlockStore.
func (s *Store) PutBytes(ctx context.Context, r io.Reader) (cid.Cid, error) {
	return storeutil.PutBytes(ctx, s, r)
}

// GetBytes implements zerofs.BlockStore.
func (s *Store) GetBytes(ctx context.Context, c cid.Cid) (io.ReadCloser, error) {
	return storeutil.GetBytes(ctx, s, c)
}

// PutRawBlock implements zerofs.BlockStore.
func (s *Store) PutRawBlock(ctx context.Context, data []byte) (cid.Cid, error) {
	c, err := storeutil.SumCid(zerofs.Raw, data)
	if err != nil {
		return cid.Undef, err
	}
	return c, s.WriteBlock(ctx, c, data)
}

// GetRawBlock implements zerofs.BlockStore.
func (s *Store) GetRawBlock(_ context.Context, c cid.Cid) ([]byte, error) {
	const op = "store/disk.Get"
	if data, ok := s.blocks.Get(c.KeyString()); ok {
		return data.([]byte), nil
	}
	data, err := os.ReadFile(s.blockPath(c))
	if os.IsNotExist(err) {
		return nil, errors.E(op, errors.NotFound, errors.Errorf("no block for %s", c))
	}
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	s.blocks.Add(c.KeyString(), data)
	return data, nil
}

// Has implements zerofs.BlockStore.
func (s *Store) Has(_ context.Context, c cid.Cid) (bool, error) {
	if _, ok := s.blocks.Get(c.KeyString()); ok {
		return true, nil
	}
	_, err := os.Stat(s.blockPath(c))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.E("store/disk.Has", errors.IO, err)
	}
	return true, nil
}

// WriteBlock implements zerofs.BlockWriter. The block is written to a
// temporary file and renamed into place, so readers never observe a
// partial block.
func (s *Store) WriteBlock(_ context.Context, c cid.Cid, data []byte) error {
	const op = "store/disk.Put"
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.blockPath(c)
	if _, err := os.Stat(name); err == nil {
		return nil // Content-addressed: the block is already there.
	}
	if err := os.MkdirAll(filepath.Dir(name), 0700); err != nil {
		return errors.E(op, errors.IO, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(name), "put.*.tmp")
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.E(op, errors.IO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.E(op, errors.IO, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return errors.E(op, errors.IO, err)
	}
	return nil
}

// SupportedCodecs implements zerofs.BlockStore.
func (s *Store) SupportedCodecs() []zerofs.Codec {
	return []zerofs.Codec{zerofs.DagCBOR, zerofs.Raw}
}

// NodeBlockMaxSize implements zerofs.BlockStore.
func (s *Store) NodeBlockMaxSize() int64 { return storeutil.DefaultBlockMaxSize }

// RawBlockMaxSize implements zerofs.BlockStore.
func (s *Store) RawBlockMaxSize() int64 { return storeutil.DefaultBlockMaxSize }
