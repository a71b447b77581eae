// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zerofs

import "testing"

func TestDescriptorFlags(t *testing.T) {
	f := Read | MutateDir
	if !f.Has(Read) || !f.Has(MutateDir) {
		t.Errorf("%v should have read and mutate_dir", f)
	}
	if f.Has(Write) {
		t.Errorf("%v should not have write", f)
	}
	if got := f.String(); got != "read|mutate_dir" {
		t.Errorf("String = %q", got)
	}
	if got := DescriptorFlags(0).String(); got != "none" {
		t.Errorf("String = %q", got)
	}
}

func TestFlagValidation(t *testing.T) {
	for bits := 0; bits < 256; bits++ {
		d := DescriptorFlags(bits)
		if want := bits&^0x07 == 0; d.IsValid() != want {
			t.Errorf("DescriptorFlags(%#x).IsValid() = %v, want %v", bits, d.IsValid(), want)
		}
		o := OpenFlags(bits)
		if want := bits&^0x0f == 0; o.IsValid() != want {
			t.Errorf("OpenFlags(%#x).IsValid() = %v, want %v", bits, o.IsValid(), want)
		}
		p := PathFlags(bits)
		if want := bits&^0x01 == 0; p.IsValid() != want {
			t.Errorf("PathFlags(%#x).IsValid() = %v, want %v", bits, p.IsValid(), want)
		}
	}
}

func TestOpenFlagBits(t *testing.T) {
	// The bit assignments are part of the wire contract.
	if Create != 1 || Directory != 2 || Exclusive != 4 || Truncate != 8 {
		t.Errorf("open flag bits moved: %d %d %d %d", Create, Directory, Exclusive, Truncate)
	}
	if Read != 1 || Write != 2 || MutateDir != 4 {
		t.Errorf("descriptor flag bits moved: %d %d %d", Read, Write, MutateDir)
	}
	if SymlinkFollow != 1 {
		t.Errorf("path flag bits moved: %d", SymlinkFollow)
	}
}

func TestEntityTypeRoundTrip(t *testing.T) {
	for _, typ := range []EntityType{File, Dir, Symlink} {
		got, ok := ParseEntityType(typ.String())
		if !ok || got != typ {
			t.Errorf("%v: round trip gave %v, %v", typ, got, ok)
		}
	}
	if _, ok := ParseEntityType("socket"); ok {
		t.Error("unknown type should not parse")
	}
}

func TestTime(t *testing.T) {
	now := Now()
	if got := TimeFromGo(now.Go()); got != now {
		t.Errorf("round trip gave %v, want %v", got, now)
	}
}
