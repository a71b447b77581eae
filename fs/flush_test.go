// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"bytes"
	"context"
	"testing"

	"zerofs.io/store/inprocess"
	"zerofs.io/zerofs"
)

func TestFlushPublishesTree(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	root := NewRootDir(RootDirConfig{Store: store})

	dirHandle := root.MakeHandle(zerofs.Read | zerofs.MutateDir)
	handle, err := dirHandle.OpenAt(ctx, "/docs/notes", zerofs.Create, zerofs.Read|zerofs.Write, testAuth())
	if err != nil {
		t.Fatal(err)
	}
	content := []byte("the quick brown fox")
	if err := handle.PutBytes(ctx, content, testAuth()); err != nil {
		t.Fatal(err)
	}

	rootCid, err := handle.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Every block the new root references is durable: reload the
	// whole tree from the backing store alone.
	loaded, err := LoadRootDir(ctx, RootDirConfig{Store: store}, rootCid)
	if err != nil {
		t.Fatal(err)
	}
	readHandle := loaded.MakeHandle(zerofs.Read)
	fileHandle, err := readHandle.OpenAt(ctx, "/docs/notes", 0, zerofs.Read, testAuth())
	if err != nil {
		t.Fatal(err)
	}
	got, err := fileHandle.ReadAll(ctx, testAuth())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("content = %q, want %q", got, content)
	}

	// The live root observed the install too.
	liveHandle := root.MakeHandle(zerofs.Read)
	if _, err := liveHandle.OpenAt(ctx, "/docs/notes", 0, zerofs.Read, testAuth()); err != nil {
		t.Errorf("live root cannot see the flushed file: %v", err)
	}
}

func TestFlushKeepsUnchangedSubtreeCids(t *testing.T) {
	ctx := context.Background()
	root := newRoot()

	// Publish two sibling subtrees.
	for _, name := range []string{"/a/x", "/b/y"} {
		h := root.MakeHandle(zerofs.Read | zerofs.MutateDir)
		handle, err := h.OpenAt(ctx, name, zerofs.Create, zerofs.Read|zerofs.Write, testAuth())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := handle.Flush(ctx); err != nil {
			t.Fatal(err)
		}
	}

	linkOf := func(name string) string {
		link, ok := root.Snapshot().Get(seg(t, name))
		if !ok {
			t.Fatalf("root has no entry %q", name)
		}
		return link.Cid().String()
	}
	aBefore := linkOf("a")

	// Rewrite /b/y; /a must keep its CID.
	h := root.MakeHandle(zerofs.Read | zerofs.MutateDir)
	handle, err := h.OpenAt(ctx, "/b/y", zerofs.Truncate, zerofs.Read|zerofs.Write, testAuth())
	if err != nil {
		t.Fatal(err)
	}
	if err := handle.PutBytes(ctx, []byte("new content"), testAuth()); err != nil {
		t.Fatal(err)
	}
	if _, err := handle.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	if after := linkOf("a"); after != aBefore {
		t.Errorf("unchanged subtree CID moved: %s vs %s", aBefore, after)
	}
	if linkOf("b") == "" {
		t.Error("changed subtree lost its entry")
	}
}

func TestFlushRootHandle(t *testing.T) {
	ctx := context.Background()
	root := newRoot()

	h := root.MakeHandle(zerofs.Read | zerofs.MutateDir)
	rootCid, err := h.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !rootCid.Defined() {
		t.Fatal("flush of the root handle should yield its CID")
	}

	// An empty directory's CID is stable: flushing the unchanged
	// fork again publishes the identical root.
	h = root.MakeHandle(zerofs.Read | zerofs.MutateDir)
	again, err := h.Flush(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !rootCid.Equals(again) {
		t.Errorf("unchanged root republished with a new CID: %v vs %v", rootCid, again)
	}
}

func TestFlushOverlayPromotion(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	root := NewRootDir(RootDirConfig{Store: store})

	dirHandle := root.MakeHandle(zerofs.Read | zerofs.MutateDir)
	handle, err := dirHandle.OpenAt(ctx, "/f", zerofs.Create, zerofs.Read|zerofs.Write, testAuth())
	if err != nil {
		t.Fatal(err)
	}

	// Before the flush the backing store has nothing.
	if store.Len() != 0 {
		t.Fatalf("backing store has %d blocks before flush", store.Len())
	}

	fileCid, err := handle.Entity().Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if has, _ := store.Has(ctx, fileCid); has {
		t.Error("entity block leaked into the backing store before flush")
	}

	if _, err := handle.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if has, _ := store.Has(ctx, fileCid); !has {
		t.Error("entity block missing from the backing store after flush")
	}
}
