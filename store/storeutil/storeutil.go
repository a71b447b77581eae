// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storeutil provides the canonical node codec, CID derivation
// and byte-stream chunking shared by the block store implementations.
package storeutil // import "zerofs.io/store/storeutil"

import (
	"bytes"
	"context"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"zerofs.io/errors"
	"zerofs.io/zerofs"
)

// DefaultBlockMaxSize is the advisory block size limit used by the
// stores in this repository when none is configured. Byte streams
// larger than this are chunked into a sub-DAG.
const DefaultBlockMaxSize = 256 * 1024 // 256 KiB

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Canonical encoding: deterministic map ordering and shortest
	// integer forms, so that equal nodes always serialize to equal
	// bytes and therefore equal CIDs.
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// MarshalNode serializes v into its canonical byte form.
func MarshalNode(v interface{}) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, errors.E("storeutil.MarshalNode", errors.Store, err)
	}
	return data, nil
}

// UnmarshalNode deserializes canonical node bytes into v.
func UnmarshalNode(data []byte, v interface{}) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return errors.E("storeutil.UnmarshalNode", errors.Store, err)
	}
	return nil
}

// SumCid derives the CID for a block of the given codec: a CIDv1
// carrying the SHA2-256 multihash of data. Equal bytes yield equal
// CIDs.
func SumCid(codec zerofs.Codec, data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, errors.E("storeutil.SumCid", errors.Store, err)
	}
	return cid.NewCidV1(uint64(codec), mh), nil
}

// CastCid parses the binary form of a CID embedded in a node.
func CastCid(b []byte) (cid.Cid, error) {
	c, err := cid.Cast(b)
	if err != nil {
		return cid.Undef, errors.E("storeutil.CastCid", errors.Store, err)
	}
	return c, nil
}

// ChunkRef names one chunk of a chunked byte stream.
type ChunkRef struct {
	Cid  []byte `cbor:"cid"`
	Size int64  `cbor:"size"`
}

// ChunkList is the interior node of a chunked byte stream: the chunk
// CIDs in order, with their sizes so that the total length is
// computable without fetching content.
type ChunkList struct {
	Chunks []ChunkRef `cbor:"chunks"`
}

// References implements zerofs.Node.
func (n *ChunkList) References() []cid.Cid {
	refs := make([]cid.Cid, 0, len(n.Chunks))
	for _, ch := range n.Chunks {
		if c, err := cid.Cast(ch.Cid); err == nil {
			refs = append(refs, c)
		}
	}
	return refs
}

// PutBytes implements the byte-stream side of the BlockStore contract
// on top of a store's raw block and node operations. The stream is
// split into chunks of the store's raw block size limit; a stream
// that fits a single chunk is stored as one raw block, anything
// larger becomes raw chunks under a ChunkList node.
func PutBytes(ctx context.Context, store zerofs.BlockStore, r io.Reader) (cid.Cid, error) {
	const op = "storeutil.PutBytes"
	chunkSize := store.RawBlockMaxSize()
	if chunkSize <= 0 {
		chunkSize = DefaultBlockMaxSize
	}

	var chunks []ChunkRef
	var first cid.Cid
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return cid.Undef, errors.E(op, errors.IO, err)
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 || len(chunks) == 0 {
			c, perr := store.PutRawBlock(ctx, buf[:n])
			if perr != nil {
				return cid.Undef, perr
			}
			if len(chunks) == 0 {
				first = c
			}
			chunks = append(chunks, ChunkRef{Cid: c.Bytes(), Size: int64(n)})
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return cid.Undef, errors.E(op, errors.IO, err)
		}
	}

	if len(chunks) == 1 {
		return first, nil
	}
	return store.PutNode(ctx, &ChunkList{Chunks: chunks})
}

// GetBytes returns a lazy reader over the byte stream rooted at c,
// fetching chunk blocks from store only as the reader advances.
func GetBytes(ctx context.Context, store zerofs.BlockStore, c cid.Cid) (io.ReadCloser, error) {
	if c.Prefix().Codec == uint64(zerofs.Raw) {
		data, err := store.GetRawBlock(ctx, c)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	var list ChunkList
	if err := store.GetNode(ctx, c, &list); err != nil {
		return nil, err
	}
	return &dagReader{ctx: ctx, store: store, chunks: list.Chunks}, nil
}

// SizeOf returns the total length in bytes of the byte stream rooted
// at c. For chunked streams the sizes recorded in the ChunkList are
// summed without fetching content.
func SizeOf(ctx context.Context, store zerofs.BlockStore, c cid.Cid) (int64, error) {
	if c.Prefix().Codec == uint64(zerofs.Raw) {
		data, err := store.GetRawBlock(ctx, c)
		if err != nil {
			return 0, err
		}
		return int64(len(data)), nil
	}
	var list ChunkList
	if err := store.GetNode(ctx, c, &list); err != nil {
		return 0, err
	}
	var total int64
	for _, ch := range list.Chunks {
		total += ch.Size
	}
	return total, nil
}

// dagReader streams the chunks of a ChunkList in order.
type dagReader struct {
	ctx    context.Context
	store  zerofs.BlockStore
	chunks []ChunkRef
	next   int
	cur    *bytes.Reader
}

func (r *dagReader) Read(p []byte) (int, error) {
	for r.cur == nil || r.cur.Len() == 0 {
		if r.next >= len(r.chunks) {
			return 0, io.EOF
		}
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}
		c, err := cid.Cast(r.chunks[r.next].Cid)
		if err != nil {
			return 0, errors.E("storeutil.GetBytes", errors.Store, err)
		}
		data, err := r.store.GetRawBlock(r.ctx, c)
		if err != nil {
			return 0, err
		}
		r.next++
		r.cur = bytes.NewReader(data)
	}
	return r.cur.Read(p)
}

func (r *dagReader) Close() error {
	r.cur = nil
	r.next = len(r.chunks)
	return nil
}
