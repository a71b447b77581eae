// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"

	"github.com/ipfs/go-cid"

	"zerofs.io/errors"
	"zerofs.io/path"
	"zerofs.io/zerofs"
)

// A Symlink is a node whose content is the path of another entity.
// The node stores only the target path; resolving it against a
// directory is the caller's business, and traversal through symlinks
// is not implemented in this revision.
type Symlink struct {
	inner *symlinkInner
}

type symlinkInner struct {
	metadata Metadata
	link     *PathLink
	store    zerofs.BlockStore
}

var _ Entity = Symlink{}

// NewSymlink creates a symlink to target, anchored in store.
func NewSymlink(store zerofs.BlockStore, target path.Path) Symlink {
	return Symlink{inner: &symlinkInner{
		metadata: NewMetadata(zerofs.Symlink),
		link:     NewPathLink(target),
		store:    store,
	}}
}

// Kind implements Entity.
func (s Symlink) Kind() zerofs.EntityType { return zerofs.Symlink }

// Metadata implements Entity.
func (s Symlink) Metadata() Metadata { return s.inner.metadata }

// Target returns the path the symlink points at.
func (s Symlink) Target() path.Path { return s.inner.link.Path() }

// Link returns the symlink's path link, through which a caller may
// resolve and cache the target entity.
func (s Symlink) Link() *PathLink { return s.inner.link }

// UseStore implements Entity.
func (s Symlink) UseStore(store zerofs.BlockStore) Entity {
	return Symlink{inner: &symlinkInner{
		metadata: s.inner.metadata,
		link:     s.inner.link.Clone(),
		store:    store,
	}}
}

func (s Symlink) blockStore() zerofs.BlockStore { return s.inner.store }

// symlinkNode is the serialized form of a symlink: the target path in
// its canonical printed form.
type symlinkNode struct {
	Metadata metadataSchema `cbor:"metadata"`
	Link     string         `cbor:"link"`
}

// References implements zerofs.Node. A symlink references no blocks:
// its target is a name, not content.
func (n *symlinkNode) References() []cid.Cid { return nil }

// Store implements Entity.
func (s Symlink) Store(ctx context.Context) (cid.Cid, error) {
	node := &symlinkNode{
		Metadata: s.inner.metadata.schema(),
		Link:     s.inner.link.Path().String(),
	}
	return s.inner.store.PutNode(ctx, node)
}

func symlinkFromSchema(metadata Metadata, schema entitySchema, store zerofs.BlockStore) (Symlink, error) {
	target, err := path.Parse(schema.Link)
	if err != nil {
		return Symlink{}, errors.E("fs.LoadEntity", err)
	}
	return Symlink{inner: &symlinkInner{
		metadata: metadata,
		link:     NewPathLink(target),
		store:    store,
	}}, nil
}
