// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package overlay implements a two-layer block store: an ephemeral
// in-memory front for writes over a durable backing store for reads.
//
// Every write lands in the front layer; reads consult the front first
// and fall through to the backing store. Blocks created during an
// operation therefore stay private to that operation until Sync
// promotes them, which is how a forked tree accumulates edits without
// publishing partial state.
package overlay // import "zerofs.io/store/overlay"

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"

	"zerofs.io/errors"
	"zerofs.io/store/inprocess"
	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

// Store composes an in-memory front store and a backing store.
type Store struct {
	front *inprocess.Store
	back  zerofs.BlockStore
}

var _ zerofs.BlockStore = (*Store)(nil)

// New returns an overlay over back with a fresh, empty front layer.
func New(back zerofs.BlockStore) *Store {
	return &Store{front: inprocess.New(), back: back}
}

// Front returns the ephemeral front layer.
func (s *Store) Front() *inprocess.Store { return s.front }

// Back returns the backing store.
func (s *Store) Back() zerofs.BlockStore { return s.back }

// PutNode implements zerofs.BlockStore; the node lands in the front.
func (s *Store) PutNode(ctx context.Context, node zerofs.Node) (cid.Cid, error) {
	return s.front.PutNode(ctx, node)
}

// GetNode implements zerofs.BlockStore, trying the front then the
// backing store.
func (s *Store) GetNode(ctx context.Context, c cid.Cid, v interface{}) error {
	err := s.front.GetNode(ctx, c, v)
	if errors.Is(errors.NotFound, err) {
		return s.back.GetNode(ctx, c, v)
	}
	return err
}

// PutBytes implements zerofs.BlockStore; all chunks land in the front.
func (s *Store) PutBytes(ctx context.Context, r io.Reader) (cid.Cid, error) {
	return storeutil.PutBytes(ctx, s, r)
}

// GetBytes implements zerofs.BlockStore. Chunk fetches resolve
// through the overlay, so a stream may span both layers.
func (s *Store) GetBytes(ctx context.Context, c cid.Cid) (io.ReadCloser, error) {
	return storeutil.GetBytes(ctx, s, c)
}

// PutRawBlock implements zerofs.BlockStore; the block lands in the front.
func (s *Store) PutRawBlock(ctx context.Context, data []byte) (cid.Cid, error) {
	return s.front.PutRawBlock(ctx, data)
}

// GetRawBlock implements zerofs.BlockStore, trying the front then the
// backing store.
func (s *Store) GetRawBlock(ctx context.Context, c cid.Cid) ([]byte, error) {
	data, err := s.front.GetRawBlock(ctx, c)
	if errors.Is(errors.NotFound, err) {
		return s.back.GetRawBlock(ctx, c)
	}
	return data, err
}

// Has implements zerofs.BlockStore.
func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	ok, err := s.front.Has(ctx, c)
	if err != nil || ok {
		return ok, err
	}
	return s.back.Has(ctx, c)
}

// Sync promotes every block in the front layer into the backing
// store. The backing store must implement zerofs.BlockWriter so the
// blocks keep the CIDs they were written under. Promotion is
// idempotent: blocks the backing store already holds are skipped.
func (s *Store) Sync(ctx context.Context) error {
	const op = "store/overlay.Sync"
	w, ok := s.back.(zerofs.BlockWriter)
	if !ok {
		return errors.E(op, errors.Store, errors.Str("backing store cannot accept promoted blocks"))
	}
	for c, data := range s.front.Blocks() {
		if err := ctx.Err(); err != nil {
			return errors.E(op, errors.IO, err)
		}
		has, err := s.back.Has(ctx, c)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if err := w.WriteBlock(ctx, c, data); err != nil {
			return err
		}
	}
	return nil
}

// SupportedCodecs implements zerofs.BlockStore, reporting the codecs
// common to both layers.
func (s *Store) SupportedCodecs() []zerofs.Codec {
	backCodecs := make(map[zerofs.Codec]bool)
	for _, c := range s.back.SupportedCodecs() {
		backCodecs[c] = true
	}
	var out []zerofs.Codec
	for _, c := range s.front.SupportedCodecs() {
		if backCodecs[c] {
			out = append(out, c)
		}
	}
	return out
}

// NodeBlockMaxSize implements zerofs.BlockStore, returning the
// minimum of the two layers. Zero means unbounded, so it only wins
// when both layers are unbounded.
func (s *Store) NodeBlockMaxSize() int64 {
	return minSize(s.front.NodeBlockMaxSize(), s.back.NodeBlockMaxSize())
}

// RawBlockMaxSize implements zerofs.BlockStore, returning the
// minimum of the two layers.
func (s *Store) RawBlockMaxSize() int64 {
	return minSize(s.front.RawBlockMaxSize(), s.back.RawBlockMaxSize())
}

func minSize(a, b int64) int64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	}
	return b
}
