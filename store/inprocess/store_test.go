// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inprocess

import (
	"bytes"
	"context"
	"io"
	"testing"

	"zerofs.io/errors"
	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

func TestRawBlockRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()
	data := []byte("hello, world!")

	c, err := store.PutRawBlock(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := store.GetRawBlock(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("got %q, want %q", got, data)
	}
	has, err := store.Has(ctx, c)
	if err != nil || !has {
		t.Errorf("Has = %v, %v; want true", has, err)
	}
}

func TestEqualBytesEqualCids(t *testing.T) {
	ctx := context.Background()
	store := New()

	c1, err := store.PutRawBlock(ctx, []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	c2, err := store.PutRawBlock(ctx, []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if !c1.Equals(c2) {
		t.Errorf("equal bytes gave different CIDs: %v vs %v", c1, c2)
	}
	c3, err := store.PutRawBlock(ctx, []byte("different"))
	if err != nil {
		t.Fatal(err)
	}
	if c1.Equals(c3) {
		t.Error("different bytes gave equal CIDs")
	}
}

func TestGetMissingBlock(t *testing.T) {
	ctx := context.Background()
	store := New()
	c, err := storeutil.SumCid(zerofs.Raw, []byte("never stored"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.GetRawBlock(ctx, c)
	if !errors.Is(errors.NotFound, err) {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	chunk, err := store.PutRawBlock(ctx, []byte("chunk"))
	if err != nil {
		t.Fatal(err)
	}
	node := &storeutil.ChunkList{
		Chunks: []storeutil.ChunkRef{{Cid: chunk.Bytes(), Size: 5}},
	}

	c, err := store.PutNode(ctx, node)
	if err != nil {
		t.Fatal(err)
	}
	var loaded storeutil.ChunkList
	if err := store.GetNode(ctx, c, &loaded); err != nil {
		t.Fatal(err)
	}
	if len(loaded.Chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(loaded.Chunks))
	}
	if len(loaded.References()) != 1 || !loaded.References()[0].Equals(chunk) {
		t.Errorf("references = %v, want %v", loaded.References(), chunk)
	}
}

func TestPutBytesSmall(t *testing.T) {
	ctx := context.Background()
	store := New()
	data := []byte("small payload")

	c, err := store.PutBytes(ctx, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	// Fits one chunk: stored as a single raw block.
	if c.Prefix().Codec != uint64(zerofs.Raw) {
		t.Errorf("codec = %#x, want raw", c.Prefix().Codec)
	}
	rc, err := store.GetBytes(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("got %q, want %q", got, data)
	}
	size, err := storeutil.SizeOf(ctx, store, c)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(data)) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
}

func TestPutBytesEmpty(t *testing.T) {
	ctx := context.Background()
	store := New()

	c, err := store.PutBytes(ctx, bytes.NewReader(nil))
	if err != nil {
		t.Fatal(err)
	}
	rc, err := store.GetBytes(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d bytes, want 0", len(got))
	}
}
