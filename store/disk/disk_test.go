// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disk

import (
	"bytes"
	"context"
	"testing"

	"zerofs.io/errors"
	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("persisted block")
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
	if has, _ := store.Has(ctx, c); !has {
		t.Error("Has should report the stored block")
	}
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := New(dir, 4)
	if err != nil {
		t.Fatal(err)
	}
	c, err := store.PutRawBlock(ctx, []byte("durable"))
	if err != nil {
		t.Fatal(err)
	}

	reopened, err := New(dir, 4)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.GetRawBlock(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "durable" {
		t.Errorf("got %q", got)
	}
}

func TestMissingBlock(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}
	c, err := storeutil.SumCid(zerofs.Raw, []byte("absent"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRawBlock(ctx, c); !errors.Is(errors.NotFound, err) {
		t.Errorf("got %v, want NotFound", err)
	}
	if has, _ := store.Has(ctx, c); has {
		t.Error("Has should be false for a missing block")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir(), 4)
	if err != nil {
		t.Fatal(err)
	}
	c1, err := store.PutRawBlock(ctx, []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	c2, err := store.PutRawBlock(ctx, []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if !c1.Equals(c2) {
		t.Errorf("CIDs differ: %v vs %v", c1, c2)
	}
}
