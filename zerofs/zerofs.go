// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zerofs

import (
	"context"
	"io"
	"time"

	"github.com/ipfs/go-cid"
)

// A PathName is the string form of a path within the tree, with a
// leading slash and slash-separated segments. It is given a unique type
// so the API is clear. Example: /public/notes
type PathName string

// A DID is a decentralized identifier naming a principal, typically a
// file system instance or a user, for authorization purposes.
// Example: did:key:z6MkoVs2h6TnfyY8fx2ZqpREWSLS8rBDQmGpyXgFpg63CSUb
type DID string

// Time represents a timestamp in units of seconds since
// the Unix epoch, Jan 1 1970 0:00 UTC.
type Time int64

// Now returns the current time as a zerofs.Time.
func Now() Time {
	return TimeFromGo(time.Now())
}

// TimeFromGo returns the zerofs.Time representation of a Go time.
func TimeFromGo(t time.Time) Time {
	return Time(t.Unix())
}

// Go returns the Go Time value representation of a zerofs.Time.
func (t Time) Go() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t Time) String() string {
	return t.Go().Format(time.RFC3339)
}

// EntityType identifies the kind of a node in the tree.
type EntityType uint8

// The kinds of entities.
const (
	File EntityType = iota
	Dir
	Symlink
)

func (t EntityType) String() string {
	switch t {
	case File:
		return "file"
	case Dir:
		return "dir"
	case Symlink:
		return "symlink"
	}
	return "unknown"
}

// ParseEntityType is the inverse of EntityType.String. The ok result
// reports whether the name was recognized.
func ParseEntityType(s string) (EntityType, bool) {
	switch s {
	case "file":
		return File, true
	case "dir":
		return Dir, true
	case "symlink":
		return Symlink, true
	}
	return 0, false
}

// A Codec identifies the encoding of a block, using the multicodec
// numbering shared with the CID itself.
type Codec uint64

// Codecs understood by the stores in this repository.
const (
	Raw     Codec = 0x55 // Uninterpreted bytes.
	DagCBOR Codec = 0x71 // Canonical CBOR with CID links.
)

// Node is the constraint on values persisted with BlockStore.PutNode.
// A node reports the CIDs it links to so that stores and the flush
// machinery can walk the graph without interpreting the node's bytes.
type Node interface {
	References() []cid.Cid
}

// BlockStore is an asynchronous content-addressed block service.
// Implementations derive the CID of a block from its bytes, so storing
// equal bytes twice yields equal CIDs and equal CIDs imply equal
// content.
//
// The block size limits are advisory: stores report them so that
// callers can chunk large payloads, but serialization of an oversized
// node is not rejected.
type BlockStore interface {
	// PutNode serializes node into its canonical byte form, stores
	// the block and returns its CID.
	PutNode(ctx context.Context, node Node) (cid.Cid, error)

	// GetNode fetches the block identified by c and deserializes it
	// into v.
	GetNode(ctx context.Context, c cid.Cid, v interface{}) error

	// PutBytes stores a byte stream of arbitrary length, chunking it
	// into a sub-DAG when it exceeds the raw block size limit, and
	// returns the CID of the root of the produced DAG.
	PutBytes(ctx context.Context, r io.Reader) (cid.Cid, error)

	// GetBytes returns a reader over the byte stream rooted at c.
	// Chunks are fetched lazily as the reader advances.
	GetBytes(ctx context.Context, c cid.Cid) (io.ReadCloser, error)

	// PutRawBlock stores a single uninterpreted block.
	PutRawBlock(ctx context.Context, data []byte) (cid.Cid, error)

	// GetRawBlock fetches a single block's bytes.
	GetRawBlock(ctx context.Context, c cid.Cid) ([]byte, error)

	// Has reports whether the store holds a block for c.
	Has(ctx context.Context, c cid.Cid) (bool, error)

	// SupportedCodecs enumerates the codecs the store can produce.
	SupportedCodecs() []Codec

	// NodeBlockMaxSize returns the advisory maximum size of a node
	// block in bytes, or 0 when unbounded.
	NodeBlockMaxSize() int64

	// RawBlockMaxSize returns the advisory maximum size of a raw
	// block in bytes, or 0 when unbounded. PutBytes chunks its input
	// at this size.
	RawBlockMaxSize() int64
}

// BlockWriter is implemented by stores that can accept a block under a
// caller-supplied CID, bypassing digest derivation. The overlay store
// uses it to promote blocks from its ephemeral front layer into the
// durable backing store without re-deriving identities.
type BlockWriter interface {
	WriteBlock(ctx context.Context, c cid.Cid, data []byte) error
}
