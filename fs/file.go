// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"

	"github.com/ipfs/go-cid"

	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

// A File is a file node. The content field holds the CID of the
// file's byte stream, which the store may have chunked into a
// sub-DAG; an unset content means the file is logically empty.
//
// Files are shared immutably: a File value is a cheap reference to a
// shared interior, and mutating methods replace the interior rather
// than editing it, so concurrent readers of an older value observe
// the older content.
type File struct {
	inner *fileInner
}

type fileInner struct {
	// metadata is the file's descriptive data.
	metadata Metadata

	// content is the CID of the byte stream, or cid.Undef when the
	// file is empty.
	content cid.Cid

	// store persists the file's blocks.
	store zerofs.BlockStore
}

var _ Entity = File{}

// NewFile creates an empty file anchored in store.
func NewFile(store zerofs.BlockStore) File {
	return File{inner: &fileInner{
		metadata: NewMetadata(zerofs.File),
		store:    store,
	}}
}

// Kind implements Entity.
func (f File) Kind() zerofs.EntityType { return zerofs.File }

// Metadata implements Entity.
func (f File) Metadata() Metadata { return f.inner.metadata }

// Content returns the CID of the file's byte stream. The ok result is
// false when the file is empty.
func (f File) Content() (cid.Cid, bool) {
	return f.inner.content, f.inner.content.Defined()
}

// IsEmpty reports whether the file has no content.
func (f File) IsEmpty() bool { return !f.inner.content.Defined() }

// Size computes the length of the file's content in bytes by
// consulting the content graph. Size is never persisted.
func (f File) Size(ctx context.Context) (int64, error) {
	c, ok := f.Content()
	if !ok {
		return 0, nil
	}
	return storeutil.SizeOf(ctx, f.inner.store, c)
}

// Truncate drops the file's content, leaving it logically empty.
// Truncating an already empty file is a no-op and does not touch the
// metadata, so the node's CID is unchanged.
func (f *File) Truncate() {
	if !f.inner.content.Defined() {
		return
	}
	f.inner = &fileInner{
		metadata: f.inner.metadata.touch(),
		store:    f.inner.store,
	}
}

// SetContent replaces the file's content with the byte stream rooted
// at c, via clone-on-write, and bumps the modification time.
func (f *File) SetContent(c cid.Cid) {
	f.inner = &fileInner{
		metadata: f.inner.metadata.touch(),
		content:  c,
		store:    f.inner.store,
	}
}

// UseStore implements Entity.
func (f File) UseStore(s zerofs.BlockStore) Entity {
	return File{inner: &fileInner{
		metadata: f.inner.metadata,
		content:  f.inner.content,
		store:    s,
	}}
}

func (f File) blockStore() zerofs.BlockStore { return f.inner.store }

// fileNode is the serialized form of a file.
type fileNode struct {
	Metadata metadataSchema `cbor:"metadata"`
	Content  []byte         `cbor:"content"`
}

// References implements zerofs.Node.
func (n *fileNode) References() []cid.Cid {
	if len(n.Content) == 0 {
		return nil
	}
	c, err := cid.Cast(n.Content)
	if err != nil {
		return nil
	}
	return []cid.Cid{c}
}

// Store implements Entity.
func (f File) Store(ctx context.Context) (cid.Cid, error) {
	node := &fileNode{Metadata: f.inner.metadata.schema()}
	if f.inner.content.Defined() {
		node.Content = f.inner.content.Bytes()
	}
	return f.inner.store.PutNode(ctx, node)
}

func fileFromSchema(metadata Metadata, schema entitySchema, store zerofs.BlockStore) (File, error) {
	inner := &fileInner{metadata: metadata, store: store}
	if len(schema.Content) > 0 {
		c, err := storeutil.CastCid(schema.Content)
		if err != nil {
			return File{}, err
		}
		inner.content = c
	}
	return File{inner: inner}, nil
}
