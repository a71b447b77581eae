// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"

	"github.com/ipfs/go-cid"

	"zerofs.io/errors"
	"zerofs.io/zerofs"
)

// An Entity is a node in the tree: a File, Dir or Symlink. Entities
// are immutable at the reference level; mutating methods on the
// concrete types perform clone-on-write, so holders of an older copy
// keep observing the older value.
type Entity interface {
	// Kind returns the entity's type tag.
	Kind() zerofs.EntityType

	// Metadata returns the entity's metadata.
	Metadata() Metadata

	// Store serializes the entity into its canonical form, writes
	// the block to the entity's store and returns its CID.
	Store(ctx context.Context) (cid.Cid, error)

	// UseStore returns the entity re-anchored in a different store.
	// Logical content and CID are unchanged; link caches are reset.
	UseStore(s zerofs.BlockStore) Entity

	// blockStore returns the store the entity is anchored in.
	blockStore() zerofs.BlockStore
}

// entitySchema is the union of the serialized node shapes. Which
// fields are present depends on the entity type; decoding tolerates
// the absent ones, so a single fetch suffices for dispatch.
type entitySchema struct {
	Metadata metadataSchema    `cbor:"metadata"`
	Content  []byte            `cbor:"content,omitempty"`
	Entries  map[string][]byte `cbor:"entries,omitempty"`
	Link     string            `cbor:"link,omitempty"`
}

// LoadEntity fetches the node identified by c from store and
// reconstructs the entity it serializes.
func LoadEntity(ctx context.Context, c cid.Cid, store zerofs.BlockStore) (Entity, error) {
	const op = "fs.LoadEntity"
	var schema entitySchema
	if err := store.GetNode(ctx, c, &schema); err != nil {
		return nil, err
	}
	metadata, err := metadataFromSchema(schema.Metadata)
	if err != nil {
		return nil, errors.E(op, err)
	}
	switch metadata.EntityType {
	case zerofs.File:
		return fileFromSchema(metadata, schema, store)
	case zerofs.Dir:
		return dirFromSchema(metadata, schema, store)
	case zerofs.Symlink:
		return symlinkFromSchema(metadata, schema, store)
	}
	return nil, errors.E(op, errors.Store, errors.Errorf("unhandled entity type %v", metadata.EntityType))
}

// AsFile narrows an entity to a File.
func AsFile(e Entity) (File, error) {
	if f, ok := e.(File); ok {
		return f, nil
	}
	return File{}, errors.E(errors.NotAFile)
}

// AsDir narrows an entity to a Dir.
func AsDir(e Entity) (Dir, error) {
	if d, ok := e.(Dir); ok {
		return d, nil
	}
	return Dir{}, errors.E(errors.NotADirectory)
}
