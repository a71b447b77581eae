// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package service assembles a file system instance: a durable block
// store, a signing key naming the instance, a UCAN verifier and the
// live root directory, behind an operation-envelope interface the
// user gateway forwards requests to.
package service // import "zerofs.io/service"

import (
	"context"
	"encoding/json"
	"sync"

	"zerofs.io/errors"
	"zerofs.io/factotum"
	"zerofs.io/fs"
	"zerofs.io/log"
	"zerofs.io/ucan"
	"zerofs.io/zerofs"
)

// ServiceConfig enumerates the options for constructing an FsService.
// Store and Key are required; NetworkID defaults to the DID of the
// key, and a nil Verifier accepts every token.
type ServiceConfig struct {
	Store     zerofs.BlockStore
	Key       *factotum.Factotum
	NetworkID zerofs.DID
	Verifier  ucan.Verifier
}

// FsService is a file system service instance.
type FsService struct {
	store     zerofs.BlockStore
	key       *factotum.Factotum
	networkID zerofs.DID
	verifier  ucan.Verifier
	root      *fs.RootDir

	// mu protects handles, the table of entities minted for callers,
	// addressable by CID in later requests.
	mu      sync.Mutex
	handles map[string]*fs.Handle
}

// New builds a service from its configuration.
func New(cfg ServiceConfig) (*FsService, error) {
	const op = "service.New"
	if cfg.Store == nil {
		return nil, errors.E(op, errors.Str("a block store is required"))
	}
	if cfg.Key == nil {
		return nil, errors.E(op, errors.Str("a signing key is required"))
	}
	networkID := cfg.NetworkID
	if networkID == "" {
		did, err := cfg.Key.DID()
		if err != nil {
			return nil, errors.E(op, err)
		}
		networkID = did
	}
	log.Info.Printf("service: file system instance %s", networkID)
	return &FsService{
		store:     cfg.Store,
		key:       cfg.Key,
		networkID: networkID,
		verifier:  cfg.Verifier,
		root:      fs.NewRootDir(fs.RootDirConfig{Store: cfg.Store}),
		handles:   make(map[string]*fs.Handle),
	}, nil
}

// NetworkID returns the DID naming this instance.
func (s *FsService) NetworkID() zerofs.DID { return s.networkID }

// Root returns the live root directory.
func (s *FsService) Root() *fs.RootDir { return s.root }

// Apply executes one operation envelope under the presented token and
// returns its result.
func (s *FsService) Apply(ctx context.Context, req EntityOperation, token ucan.Token) (interface{}, error) {
	const op = "service.Apply"
	switch req.Operation.Type {
	case OpOpenAt:
		var params OpenAtParams
		if err := json.Unmarshal(req.Operation.Params, &params); err != nil {
			return nil, errors.E(op, errors.IO, err)
		}
		return s.openAt(ctx, req.Identifier, &params, token)
	}
	return nil, errors.E(op, errors.Errorf("unknown operation %q", req.Operation.Type))
}

// ApplyRaw is Apply over JSON bytes, for transports that forward the
// envelope verbatim.
func (s *FsService) ApplyRaw(ctx context.Context, raw []byte, token ucan.Token) ([]byte, error) {
	const op = "service.ApplyRaw"
	var req EntityOperation
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	result, err := s.Apply(ctx, req, token)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	return out, nil
}

func (s *FsService) openAt(ctx context.Context, identifier *string, params *OpenAtParams, token ucan.Token) (*OpenAtResult, error) {
	const op = "service.OpenAt"

	// Path flags are validated with the rest but not consulted:
	// symlink traversal is not implemented, so a follow request
	// changes nothing a trace can encounter.
	_, openFlags, descriptorFlags, err := params.flags()
	if err != nil {
		return nil, err
	}

	base, err := s.baseHandle(identifier)
	if err != nil {
		return nil, err
	}
	auth := ucan.Auth{Token: token, Audience: s.networkID, Verifier: s.verifier}

	handle, err := base.OpenAt(ctx, params.Path, openFlags, descriptorFlags, auth)
	if err != nil {
		return nil, err
	}

	result := &OpenAtResult{}
	if name, ok := handle.Name(); ok {
		result.Name = name.String()
	}

	// Opens that materialized or rewrote nodes republish the tree;
	// pure lookups answer against the current root.
	if openFlags.Has(zerofs.Create) || openFlags.Has(zerofs.Truncate) {
		rootCid, err := handle.Flush(ctx)
		if err != nil {
			return nil, err
		}
		result.Root = rootCid.String()
	} else {
		rootCid, err := s.root.Snapshot().Store(ctx)
		if err != nil {
			return nil, err
		}
		result.Root = rootCid.String()
	}

	entityCid, err := handle.Entity().Store(ctx)
	if err != nil {
		return nil, err
	}
	result.Entity = entityCid.String()

	s.mu.Lock()
	s.handles[result.Entity] = handle
	s.mu.Unlock()

	return result, nil
}

// baseHandle resolves the envelope identifier to the handle the
// operation starts from: the root when absent, a previously minted
// handle otherwise.
func (s *FsService) baseHandle(identifier *string) (*fs.Handle, error) {
	const op = "service.Apply"
	if identifier == nil {
		// The service holds the root capability of its own tree.
		return s.root.MakeHandle(zerofs.Read | zerofs.Write | zerofs.MutateDir), nil
	}
	s.mu.Lock()
	handle, ok := s.handles[*identifier]
	s.mu.Unlock()
	if !ok {
		return nil, errors.E(op, errors.NotFound, errors.Errorf("no open entity %s", *identifier))
	}
	return handle, nil
}
