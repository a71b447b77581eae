// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"
	"golang.org/x/sync/singleflight"

	"zerofs.io/path"
	"zerofs.io/zerofs"
)

// A CidLink associates a CID with a lazily loaded entity. The cache
// fills at most once: concurrent resolvers of the same link observe a
// single load. A failed load is not memoized, so a later resolver may
// retry.
//
// The identifier is the link's identity: equality compares CIDs only,
// and cloning a link forgets the cache.
type CidLink struct {
	cid cid.Cid

	mu     sync.Mutex
	flight singleflight.Group
	cached Entity
}

// NewCidLink returns an unresolved link to c.
func NewCidLink(c cid.Cid) *CidLink {
	return &CidLink{cid: c}
}

// Cid returns the identifier of the link.
func (l *CidLink) Cid() cid.Cid { return l.cid }

// Cached returns the cached entity, if the link has been resolved.
func (l *CidLink) Cached() (Entity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cached, l.cached != nil
}

// Resolve returns the linked entity, loading it from store on first
// use. Resolvers arriving while a load is in flight share its result.
func (l *CidLink) Resolve(ctx context.Context, store zerofs.BlockStore) (Entity, error) {
	l.mu.Lock()
	if e := l.cached; e != nil {
		l.mu.Unlock()
		return e, nil
	}
	l.mu.Unlock()

	// The group key is fixed: there is exactly one load per link at
	// a time, keyed by nothing but the link itself.
	v, err, _ := l.flight.Do("load", func() (interface{}, error) {
		e, err := LoadEntity(ctx, l.cid, store)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cached = e
		l.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Entity), nil
}

// Clone returns a link with the same identifier and an empty cache.
func (l *CidLink) Clone() *CidLink {
	return NewCidLink(l.cid)
}

// Equal reports whether two links have the same identifier. The cache
// does not participate in equality.
func (l *CidLink) Equal(m *CidLink) bool {
	return l.cid.Equals(m.cid)
}

// A PathLink associates a target path with a lazily loaded entity.
// Symbolic links carry one; resolution is performed by the caller
// against whatever directory it chooses, so the loader is an argument
// rather than a store.
type PathLink struct {
	path path.Path

	mu     sync.Mutex
	flight singleflight.Group
	cached Entity
}

// NewPathLink returns an unresolved link to p.
func NewPathLink(p path.Path) *PathLink {
	return &PathLink{path: p}
}

// Path returns the identifier of the link.
func (l *PathLink) Path() path.Path { return l.path }

// Cached returns the cached entity, if the link has been resolved.
func (l *PathLink) Cached() (Entity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cached, l.cached != nil
}

// Resolve returns the linked entity, evaluating load on first use
// under the same single-initialization rules as CidLink.
func (l *PathLink) Resolve(ctx context.Context, load func(context.Context, path.Path) (Entity, error)) (Entity, error) {
	l.mu.Lock()
	if e := l.cached; e != nil {
		l.mu.Unlock()
		return e, nil
	}
	l.mu.Unlock()

	v, err, _ := l.flight.Do("load", func() (interface{}, error) {
		e, err := load(ctx, l.path)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cached = e
		l.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Entity), nil
}

// Clone returns a link with the same identifier and an empty cache.
func (l *PathLink) Clone() *PathLink {
	return NewPathLink(l.path)
}

// Equal reports whether two links name the same path.
func (l *PathLink) Equal(m *PathLink) bool {
	return l.path.Equal(m.path)
}
