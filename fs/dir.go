// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"
	"sort"

	"github.com/ipfs/go-cid"

	"zerofs.io/errors"
	"zerofs.io/path"
	"zerofs.io/store/storeutil"
	"zerofs.io/zerofs"
)

// A Dir is a directory node: an unordered set of named links to child
// entities. Entry names compare case-insensitively, and no two
// entries may share a case-folded name.
//
// Like File, a Dir value is a cheap reference to a shared interior
// and mutation is clone-on-write.
type Dir struct {
	inner *dirInner
}

type dirInner struct {
	// metadata is the directory's descriptive data.
	metadata Metadata

	// store persists the directory's blocks.
	store zerofs.BlockStore

	// entries maps the case-folded form of each name to its entry.
	entries map[string]DirEntry
}

// A DirEntry is one named link in a directory. Name preserves the
// case the entry was created with; lookups fold it.
type DirEntry struct {
	Name path.Segment
	Link *CidLink
}

var _ Entity = Dir{}

// NewDir creates an empty directory anchored in store.
func NewDir(store zerofs.BlockStore) Dir {
	return Dir{inner: &dirInner{
		metadata: NewMetadata(zerofs.Dir),
		store:    store,
		entries:  make(map[string]DirEntry),
	}}
}

// Kind implements Entity.
func (d Dir) Kind() zerofs.EntityType { return zerofs.Dir }

// Metadata implements Entity.
func (d Dir) Metadata() Metadata { return d.inner.metadata }

// IsEmpty reports whether the directory has no entries.
func (d Dir) IsEmpty() bool { return len(d.inner.entries) == 0 }

// Len returns the number of entries.
func (d Dir) Len() int { return len(d.inner.entries) }

// Put records a link from name to the entity identified by c,
// replacing any entry whose name folds equal. The directory is
// updated via clone-on-write; older copies keep the older entries.
func (d *Dir) Put(name path.Segment, c cid.Cid) error {
	const op = "fs.Dir.Put"
	if !name.IsNamed() {
		return errors.E(op, errors.InvalidPathSegment, errors.Errorf("%q", name.String()))
	}
	entries := make(map[string]DirEntry, len(d.inner.entries)+1)
	for k, v := range d.inner.entries {
		entries[k] = v
	}
	entries[name.Fold()] = DirEntry{Name: name, Link: NewCidLink(c)}
	d.inner = &dirInner{
		metadata: d.inner.metadata,
		store:    d.inner.store,
		entries:  entries,
	}
	return nil
}

// PutName is Put with segment parsing.
func (d *Dir) PutName(name string, c cid.Cid) error {
	seg, err := path.ParseSegment(name)
	if err != nil {
		return err
	}
	return d.Put(seg, c)
}

// Get returns the link stored under name, if any.
func (d Dir) Get(name path.Segment) (*CidLink, bool) {
	entry, ok := d.inner.entries[name.Fold()]
	if !ok {
		return nil, false
	}
	return entry.Link, true
}

// GetEntity resolves the entry stored under name through the link
// cache. The ok result is false when there is no such entry.
func (d Dir) GetEntity(ctx context.Context, name path.Segment) (Entity, bool, error) {
	link, ok := d.Get(name)
	if !ok {
		return nil, false, nil
	}
	e, err := link.Resolve(ctx, d.inner.store)
	if err != nil {
		return nil, true, err
	}
	return e, true, nil
}

// Entries returns a snapshot of the directory's entries, ordered by
// folded name for determinism. The directory itself is unordered.
func (d Dir) Entries() []DirEntry {
	keys := make([]string, 0, len(d.inner.entries))
	for k := range d.inner.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]DirEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.inner.entries[k])
	}
	return out
}

// UseStore implements Entity. Link caches are reset: cached children
// remain anchored in the old store and must be reloaded through the
// new one.
func (d Dir) UseStore(s zerofs.BlockStore) Entity {
	return d.WithStore(s)
}

// WithStore is UseStore returning the concrete type.
func (d Dir) WithStore(s zerofs.BlockStore) Dir {
	entries := make(map[string]DirEntry, len(d.inner.entries))
	for k, v := range d.inner.entries {
		entries[k] = DirEntry{Name: v.Name, Link: v.Link.Clone()}
	}
	return Dir{inner: &dirInner{
		metadata: d.inner.metadata,
		store:    s,
		entries:  entries,
	}}
}

func (d Dir) blockStore() zerofs.BlockStore { return d.inner.store }

// dirNode is the serialized form of a directory. The canonical
// encoder orders the entries map deterministically, so equal
// directories serialize to equal bytes and equal CIDs.
type dirNode struct {
	Metadata metadataSchema    `cbor:"metadata"`
	Entries  map[string][]byte `cbor:"entries"`
}

// References implements zerofs.Node.
func (n *dirNode) References() []cid.Cid {
	refs := make([]cid.Cid, 0, len(n.Entries))
	for _, b := range n.Entries {
		if c, err := cid.Cast(b); err == nil {
			refs = append(refs, c)
		}
	}
	return refs
}

// Store implements Entity.
func (d Dir) Store(ctx context.Context) (cid.Cid, error) {
	node := &dirNode{
		Metadata: d.inner.metadata.schema(),
		Entries:  make(map[string][]byte, len(d.inner.entries)),
	}
	for _, entry := range d.inner.entries {
		node.Entries[entry.Name.String()] = entry.Link.Cid().Bytes()
	}
	return d.inner.store.PutNode(ctx, node)
}

func dirFromSchema(metadata Metadata, schema entitySchema, store zerofs.BlockStore) (Dir, error) {
	const op = "fs.LoadEntity"
	entries := make(map[string]DirEntry, len(schema.Entries))
	for name, cidBytes := range schema.Entries {
		seg, err := path.ParseSegment(name)
		if err != nil {
			return Dir{}, errors.E(op, err)
		}
		c, err := storeutil.CastCid(cidBytes)
		if err != nil {
			return Dir{}, err
		}
		entries[seg.Fold()] = DirEntry{Name: seg, Link: NewCidLink(c)}
	}
	return Dir{inner: &dirInner{
		metadata: metadata,
		store:    store,
		entries:  entries,
	}}, nil
}
