// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"zerofs.io/path"
	"zerofs.io/store/inprocess"
	"zerofs.io/zerofs"
)

func seg(t *testing.T, name string) path.Segment {
	t.Helper()
	s, err := path.ParseSegment(name)
	if err != nil {
		t.Fatalf("segment %q: %v", name, err)
	}
	return s
}

func mustPath(t *testing.T, name string) path.Path {
	t.Helper()
	p, err := path.Parse(name)
	if err != nil {
		t.Fatalf("path %q: %v", name, err)
	}
	return p
}

// storeFile persists an empty file and returns its CID.
func storeFile(t *testing.T, store zerofs.BlockStore) cid.Cid {
	t.Helper()
	c, err := NewFile(store).Store(context.Background())
	if err != nil {
		t.Fatalf("store file: %v", err)
	}
	return c
}

func TestDirConstructor(t *testing.T) {
	d := NewDir(inprocess.New())
	if !d.IsEmpty() {
		t.Error("new directory should be empty")
	}
	if d.Kind() != zerofs.Dir {
		t.Errorf("Kind = %v, want Dir", d.Kind())
	}
	if d.Metadata().EntityType != zerofs.Dir {
		t.Errorf("metadata type = %v, want Dir", d.Metadata().EntityType)
	}
}

func TestDirPutGet(t *testing.T) {
	store := inprocess.New()
	d := NewDir(store)
	c1 := storeFile(t, store)

	if err := d.Put(seg(t, "File1"), c1); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1", d.Len())
	}

	// Lookup is case-insensitive and the stored case is preserved.
	link, ok := d.Get(seg(t, "fILE1"))
	if !ok {
		t.Fatal("case-folded lookup failed")
	}
	if !link.Cid().Equals(c1) {
		t.Errorf("link cid = %v, want %v", link.Cid(), c1)
	}
	entries := d.Entries()
	if len(entries) != 1 || entries[0].Name.String() != "File1" {
		t.Errorf("entries = %v, want File1", entries)
	}
}

func TestDirPutLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	d := NewDir(store)

	c1 := storeFile(t, store)
	f := NewFile(store)
	content, err := store.PutRawBlock(ctx, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	f.SetContent(content)
	c2, err := f.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := d.Put(seg(t, "name"), c1); err != nil {
		t.Fatal(err)
	}
	if err := d.Put(seg(t, "NAME"), c2); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1: case-folded keys must collide", d.Len())
	}
	link, _ := d.Get(seg(t, "name"))
	if !link.Cid().Equals(c2) {
		t.Errorf("last write should win: got %v, want %v", link.Cid(), c2)
	}
}

func TestDirCloneOnWrite(t *testing.T) {
	store := inprocess.New()
	d := NewDir(store)
	before := d // Shares the interior.

	if err := d.Put(seg(t, "a"), storeFile(t, store)); err != nil {
		t.Fatal(err)
	}
	if !before.IsEmpty() {
		t.Error("older reference should keep observing the empty directory")
	}
	if d.IsEmpty() {
		t.Error("mutated reference should see the entry")
	}
}

func TestDirStoreLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	d := NewDir(store)
	if err := d.Put(seg(t, "child"), storeFile(t, store)); err != nil {
		t.Fatal(err)
	}

	c, err := d.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := LoadEntity(ctx, c, store)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := AsDir(entity)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("loaded Len = %d, want 1", loaded.Len())
	}
	if loaded.Metadata() != d.Metadata() {
		t.Errorf("metadata changed across round trip: %v vs %v", loaded.Metadata(), d.Metadata())
	}

	// Round trip is CID-stable.
	c2, err := loaded.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equals(c2) {
		t.Errorf("round trip changed CID: %v vs %v", c, c2)
	}
}

func TestEmptyDirCidStable(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	d := NewDir(store)

	c1, err := d.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := d.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !c1.Equals(c2) {
		t.Errorf("same node serialized to different CIDs: %v vs %v", c1, c2)
	}
}

func TestFileTruncate(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	f := NewFile(store)

	// Truncating an empty file is a no-op at the CID level.
	c1, err := f.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	f.Truncate()
	c2, err := f.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !c1.Equals(c2) {
		t.Errorf("truncate of empty file changed CID: %v vs %v", c1, c2)
	}

	content, err := store.PutRawBlock(ctx, []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	f.SetContent(content)
	before := f
	f.Truncate()
	if !f.IsEmpty() {
		t.Error("file should be empty after truncate")
	}
	if before.IsEmpty() {
		t.Error("older reference should keep its content")
	}
	size, err := f.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Errorf("size = %d, want 0", size)
	}
}

func TestFileSize(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	f := NewFile(store)
	data := []byte("some file content")
	c, err := store.PutBytes(ctx, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	f.SetContent(c)
	size, err := f.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(data)) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
}

func TestSymlinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	target := mustPath(t, "/a/b")
	s := NewSymlink(store, target)

	c, err := s.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}
	entity, err := LoadEntity(ctx, c, store)
	if err != nil {
		t.Fatal(err)
	}
	loaded, ok := entity.(Symlink)
	if !ok {
		t.Fatalf("loaded %T, want Symlink", entity)
	}
	if !loaded.Target().Equal(target) {
		t.Errorf("target = %v, want %v", loaded.Target(), target)
	}
}

func TestCidLinkResolveCachesOnce(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	c := storeFile(t, store)

	link := NewCidLink(c)
	if _, ok := link.Cached(); ok {
		t.Fatal("fresh link should have no cache")
	}
	e1, err := link.Resolve(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := link.Resolve(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if e1 != e2 {
		t.Error("second resolve should return the cached entity")
	}

	// Cloning forgets the cache but keeps the identity.
	clone := link.Clone()
	if _, ok := clone.Cached(); ok {
		t.Error("clone should have an empty cache")
	}
	if !clone.Equal(link) {
		t.Error("clone should be equal to the original")
	}
}

func TestCidLinkFailureNotMemoized(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	other := inprocess.New()
	c := storeFile(t, other) // Block exists only in the other store.

	link := NewCidLink(c)
	if _, err := link.Resolve(ctx, store); err == nil {
		t.Fatal("resolve against the wrong store should fail")
	}
	// The failure is not cached: resolving against a store that has
	// the block succeeds.
	if _, err := link.Resolve(ctx, other); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
}
