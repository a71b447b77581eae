// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"

	"github.com/ipfs/go-cid"

	"zerofs.io/errors"
	"zerofs.io/log"
	"zerofs.io/store/overlay"
)

// Flush republishes the tree with the handle's edits and returns the
// new root CID.
//
// The ancestor chain is folded bottom-up: the entity is stored, its
// parent's entry is rewritten with the new CID and the parent stored,
// and so on to the top of the chain. Unchanged subtrees keep their
// CIDs. The blocks accumulated in the handle's overlay are then
// promoted into the durable store, and only once every referenced
// block is durable is the new root installed — readers never observe
// a root that references missing blocks.
func (h *Handle) Flush(ctx context.Context) (cid.Cid, error) {
	const op = "fs.Flush"

	entity := h.inner.entity
	root := h.inner.root

	c, err := entity.Store(ctx)
	if err != nil {
		return cid.Undef, errors.E(op, err)
	}

	// A handle on the root fork itself: promote and install the fork.
	if h.inner.name == nil {
		dir, err := AsDir(entity)
		if err != nil {
			return cid.Undef, errors.E(op, err)
		}
		if err := promote(ctx, entity); err != nil {
			return cid.Undef, errors.E(op, err)
		}
		root.install(dir.WithStore(root.store))
		log.Debug.Printf("fs: flushed root %s", c)
		return c, nil
	}

	cur, curName := c, *h.inner.name
	for i := len(h.inner.pathdirs) - 1; i >= 0; i-- {
		dir := h.inner.pathdirs[i].Dir
		if err := dir.Put(curName, cur); err != nil {
			return cid.Undef, errors.E(op, err)
		}
		if cur, err = dir.Store(ctx); err != nil {
			return cid.Undef, errors.E(op, err)
		}
		curName = h.inner.pathdirs[i].Name
	}

	if err := promote(ctx, entity); err != nil {
		return cid.Undef, errors.E(op, err)
	}

	// Attach the republished chain to the current root snapshot and
	// install the result. The lock is held only for the snapshot copy
	// and the final swap, never across I/O.
	dir := root.Snapshot()
	if err := dir.Put(curName, cur); err != nil {
		return cid.Undef, errors.E(op, err)
	}
	rootCid, err := dir.Store(ctx)
	if err != nil {
		return cid.Undef, errors.E(op, err)
	}
	root.install(dir)
	log.Debug.Printf("fs: flushed %s, new root %s", h.pathName(), rootCid)
	return rootCid, nil
}

// promote copies the blocks of the entity's overlay, if it has one,
// into the durable backing store.
func promote(ctx context.Context, entity Entity) error {
	if ov, ok := entity.blockStore().(*overlay.Store); ok {
		return ov.Sync(ctx)
	}
	return nil
}
