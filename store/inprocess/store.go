// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inprocess implements a simple non-persistent in-memory
// block store.
package inprocess // import "zerofs.io/store/inprocess"

import (
	"context"
	"io"
	"sync"

	"github.com/ipfs/go-cid"

	"zerofs.io/errors"
	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

// Store is an in-memory content-addressed block store, safe for
// concurrent access. It also serves as the ephemeral front layer of
// the overlay store.
type Store struct {
	// mu protects blocks.
	mu     sync.Mutex
	blocks map[string][]byte // keyed by the binary form of the CID.
}

var (
	_ zerofs.BlockStore  = (*Store)(nil)
	_ zerofs.BlockWriter = (*Store)(nil)
)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{blocks: make(map[string][]byte)}
}

func copyOf(in []byte) (out []byte) {
	out = make([]byte, len(in))
	copy(out, in)
	return out
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
	s.mu.Lock()
	data, ok := s.blocks[c.KeyString()]
	s.mu.Unlock()
	if !ok {
		return nil, errors.E("store/inprocess.Get", errors.NotFound, errors.Errorf("no block for %s", c))
	}
	return copyOf(data), nil
}

// Has implements zerofs.BlockStore.
func (s *Store) Has(_ context.Context, c cid.Cid) (bool, error) {
	s.mu.Lock()
	_, ok := s.blocks[c.KeyString()]
	s.mu.Unlock()
	return ok, nil
}

// WriteBlock implements zerofs.BlockWriter, storing data under the
// caller-supplied CID.
func (s *Store) WriteBlock(_ context.Context, c cid.Cid, data []byte) error {
	s.mu.Lock()
	s.blocks[c.KeyString()] = copyOf(data)
	s.mu.Unlock()
	return nil
}

// Blocks returns a snapshot of every block in the store. The overlay
// store uses it to promote the ephemeral front layer.
func (s *Store) Blocks() map[cid.Cid][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[cid.Cid][]byte, len(s.blocks))
	for key, data := range s.blocks {
		c, err := cid.Cast([]byte(key))
		if err != nil {
			continue
		}
		out[c] = copyOf(data)
	}
	return out
}

// Len returns the number of blocks held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}

// SupportedCodecs implements zerofs.BlockStore.
func (s *Store) SupportedCodecs() []zerofs.Codec {
	return []zerofs.Codec{zerofs.DagCBOR, zerofs.Raw}
}

// NodeBlockMaxSize implements zerofs.BlockStore.
func (s *Store) NodeBlockMaxSize() int64 { return storeutil.DefaultBlockMaxSize }

// RawBlockMaxSize implements zerofs.BlockStore.
func (s *Store) RawBlockMaxSize() int64 { return storeutil.DefaultBlockMaxSize }
