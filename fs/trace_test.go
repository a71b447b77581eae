// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"
	"testing"

	"zerofs.io/errors"
	"zerofs.io/store/inprocess"
	"zerofs.io/zerofs"
)

// buildTree persists the tree /a/b (a file) plus the symlink /link
// and returns its root directory.
func buildTree(t *testing.T, store zerofs.BlockStore) Dir {
	t.Helper()
	ctx := context.Background()

	fileCid := storeFile(t, store)

	a := NewDir(store)
	if err := a.Put(seg(t, "b"), fileCid); err != nil {
		t.Fatal(err)
	}
	aCid, err := a.Store(ctx)
	if err != nil {
		t.Fatal(err)
	}

	linkCid, err := NewSymlink(store, mustPath(t, "/a")).Store(ctx)
	if err != nil {
		t.Fatal(err)
	}

	root := NewDir(store)
	if err := root.Put(seg(t, "a"), aCid); err != nil {
		t.Fatal(err)
	}
	if err := root.Put(seg(t, "link"), linkCid); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestTraceFound(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	result, err := root.traceEntity(ctx, mustPath(t, "/a/b"))
	if err != nil {
		t.Fatal(err)
	}
	found, ok := result.(traceFound)
	if !ok {
		t.Fatalf("got %T, want traceFound", result)
	}
	if found.name == nil || found.name.String() != "b" {
		t.Errorf("name = %v, want b", found.name)
	}
	if found.entity.Kind() != zerofs.File {
		t.Errorf("entity kind = %v, want File", found.entity.Kind())
	}
	if len(found.pathdirs) != 1 || found.pathdirs[0].Name.String() != "a" {
		t.Errorf("pathdirs = %v, want one entry named a", found.pathdirs)
	}
}

func TestTraceFoundCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	result, err := root.traceEntity(ctx, mustPath(t, "/A/B"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := result.(traceFound); !ok {
		t.Fatalf("got %T, want traceFound", result)
	}
}

func TestTraceEmptyPath(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	result, err := root.traceEntity(ctx, mustPath(t, "/"))
	if err != nil {
		t.Fatal(err)
	}
	found, ok := result.(traceFound)
	if !ok {
		t.Fatalf("got %T, want traceFound", result)
	}
	if found.name != nil {
		t.Errorf("name = %v, want nil for the directory itself", found.name)
	}
	if found.entity.Kind() != zerofs.Dir {
		t.Errorf("entity kind = %v, want Dir", found.entity.Kind())
	}
}

func TestTraceIncomplete(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	// Missing first segment.
	result, err := root.traceEntity(ctx, mustPath(t, "/missing/x"))
	if err != nil {
		t.Fatal(err)
	}
	inc, ok := result.(traceIncomplete)
	if !ok {
		t.Fatalf("got %T, want traceIncomplete", result)
	}
	if inc.depth != 0 {
		t.Errorf("depth = %d, want 0", inc.depth)
	}

	// Missing final segment: depth equals the path length.
	result, err = root.traceEntity(ctx, mustPath(t, "/a/missing"))
	if err != nil {
		t.Fatal(err)
	}
	inc, ok = result.(traceIncomplete)
	if !ok {
		t.Fatalf("got %T, want traceIncomplete", result)
	}
	if inc.depth != 2 {
		t.Errorf("depth = %d, want 2", inc.depth)
	}
	// The resolved prefix consists of directories.
	if len(inc.pathdirs) != 1 {
		t.Errorf("pathdirs = %v, want the single resolved ancestor", inc.pathdirs)
	}
}

func TestTraceNotADir(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	result, err := root.traceEntity(ctx, mustPath(t, "/a/b/c"))
	if err != nil {
		t.Fatal(err)
	}
	nad, ok := result.(traceNotADir)
	if !ok {
		t.Fatalf("got %T, want traceNotADir", result)
	}
	if nad.depth != 1 {
		t.Errorf("depth = %d, want 1", nad.depth)
	}
}

func TestTraceSymlink(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	_, err := root.traceEntity(ctx, mustPath(t, "/link/b"))
	if err == nil {
		t.Fatal("expected an error for a symlink mid-path")
	}
	if !errors.Is(errors.SymlinkNotSupported, err) {
		t.Errorf("got %v, want SymlinkNotSupported", err)
	}
}

func TestGetOrCreateExisting(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	entity, name, pathdirs, err := root.getOrCreateEntity(ctx, mustPath(t, "/a/b"), true)
	if err != nil {
		t.Fatal(err)
	}
	if entity.Kind() != zerofs.File {
		t.Errorf("kind = %v, want File", entity.Kind())
	}
	if name == nil || name.String() != "b" {
		t.Errorf("name = %v, want b", name)
	}
	if len(pathdirs) != 1 {
		t.Errorf("pathdirs length = %d, want 1", len(pathdirs))
	}
}

func TestGetOrCreateAllocatesIntermediates(t *testing.T) {
	ctx := context.Background()
	store := inprocess.New()
	root := NewDir(store)

	entity, name, pathdirs, err := root.getOrCreateEntity(ctx, mustPath(t, "/x/y/z"), true)
	if err != nil {
		t.Fatal(err)
	}
	if entity.Kind() != zerofs.File {
		t.Errorf("kind = %v, want File", entity.Kind())
	}
	if name == nil || name.String() != "z" {
		t.Errorf("name = %v, want z", name)
	}
	if len(pathdirs) != 2 {
		t.Fatalf("pathdirs length = %d, want 2", len(pathdirs))
	}
	if pathdirs[0].Name.String() != "x" || pathdirs[1].Name.String() != "y" {
		t.Errorf("pathdirs names = %v, %v; want x, y", pathdirs[0].Name, pathdirs[1].Name)
	}
	// Nothing was persisted and the starting directory is untouched:
	// the allocated nodes exist only in the returned structure.
	if store.Len() != 0 {
		t.Errorf("store gained %d blocks before flush", store.Len())
	}
	if root.Len() != 0 {
		t.Errorf("starting directory gained entries: %d", root.Len())
	}
}

func TestGetOrCreateDirTerminal(t *testing.T) {
	ctx := context.Background()
	root := NewDir(inprocess.New())

	entity, _, _, err := root.getOrCreateEntity(ctx, mustPath(t, "/d"), false)
	if err != nil {
		t.Fatal(err)
	}
	if entity.Kind() != zerofs.Dir {
		t.Errorf("kind = %v, want Dir", entity.Kind())
	}
}

func TestGetOrCreateNotADir(t *testing.T) {
	ctx := context.Background()
	root := buildTree(t, inprocess.New())

	_, _, _, err := root.getOrCreateEntity(ctx, mustPath(t, "/a/b/c"), true)
	if err == nil {
		t.Fatal("expected NotADirectory")
	}
	if !errors.Is(errors.NotADirectory, err) {
		t.Errorf("got %v, want NotADirectory", err)
	}
}
