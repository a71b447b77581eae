// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"context"

	"zerofs.io/errors"
	"zerofs.io/log"
	"zerofs.io/path"
	"zerofs.io/ucan"
	"zerofs.io/zerofs"
)

// OpenAt opens the entity at name relative to h, which must be a
// directory handle, and mints a handle for it with the requested
// rights.
//
// The order of the checks below is part of the contract: the error a
// caller observes for a given combination of inputs is stable, and
// reordering any two checks would change it.
func (h *Handle) OpenAt(ctx context.Context, name string, openFlags zerofs.OpenFlags, descriptorFlags zerofs.DescriptorFlags, auth ucan.Auth) (*Handle, error) {
	const op = "fs.OpenAt"

	p, err := path.Parse(name)
	if err != nil {
		return nil, errors.E(op, err)
	}
	p, err = p.Canonicalize()
	if err != nil {
		return nil, errors.E(op, err)
	}

	// A handle without read rights is useless and therefore invalid
	// to mint.
	if !descriptorFlags.Has(zerofs.Read) {
		return nil, errors.E(op, p.Name(), errors.NeedAtLeastReadFlag)
	}

	// Reading the directory requires read rights on this handle.
	if !h.Flags().Has(zerofs.Read) {
		return nil, errors.E(op, p.Name(), errors.NotAllowedToReadDir)
	}

	// A child handle must not widen the rights of its parent: minting
	// anything that can write requires mutation rights here.
	if !h.Flags().Has(zerofs.MutateDir) &&
		(descriptorFlags.Has(zerofs.Write) ||
			descriptorFlags.Has(zerofs.MutateDir) ||
			openFlags.Has(zerofs.Create) ||
			openFlags.Has(zerofs.Truncate)) {
		return nil, errors.E(op, p.Name(), errors.PermissionEscalation)
	}

	// Directory conflicts with the flags that imply a file.
	if openFlags.Has(zerofs.Directory) &&
		(openFlags.Has(zerofs.Create) || openFlags.Has(zerofs.Exclusive) || openFlags.Has(zerofs.Truncate)) {
		return nil, errors.E(op, p.Name(), errors.InvalidFlagCombination)
	}

	if err := auth.Verify(ctx, requiredCaps(p, openFlags, descriptorFlags)...); err != nil {
		return nil, errors.E(op, p.Name(), err)
	}

	dir, err := h.Dir()
	if err != nil {
		return nil, errors.E(op, p.Name(), err)
	}

	var (
		entity   Entity
		entName  *path.Segment
		pathdirs []PathDir
	)
	if openFlags.Has(zerofs.Create) {
		// Exclusive demands that this open is the one creating the
		// entity: one that already resolves is a failure.
		if openFlags.Has(zerofs.Exclusive) {
			result, err := dir.traceEntity(ctx, p)
			if err != nil {
				return nil, errors.E(op, err)
			}
			if _, found := result.(traceFound); found {
				return nil, errors.E(op, p.Name(), errors.ExclusiveButExists)
			}
		}
		entity, entName, pathdirs, err = dir.getOrCreateEntity(ctx, p, true)
		if err != nil {
			return nil, errors.E(op, err)
		}
	} else {
		result, err := dir.traceEntity(ctx, p)
		if err != nil {
			return nil, errors.E(op, err)
		}
		switch r := result.(type) {
		case traceFound:
			if openFlags.Has(zerofs.Exclusive) {
				return nil, errors.E(op, p.Name(), errors.ExclusiveButExists)
			}
			entity, entName, pathdirs = r.entity, r.name, r.pathdirs
		case traceIncomplete:
			return nil, errors.E(op, offendingPrefix(p, r.depth).Name(), errors.NotFound)
		case traceNotADir:
			return nil, errors.E(op, offendingPrefix(p, r.depth).Name(), errors.NotADirectory)
		}
	}

	chain, err := h.childPathDirs(pathdirs)
	if err != nil {
		return nil, errors.E(op, p.Name(), err)
	}

	switch entity := entity.(type) {
	case Dir:
		log.Debug.Printf("fs: open dir %s (%s)", p, descriptorFlags)
		return newHandle(entity, entName, descriptorFlags, h.Root(), chain), nil
	case File:
		if openFlags.Has(zerofs.Directory) {
			return nil, errors.E(op, p.Name(), errors.DirectoryButNotADir)
		}
		if openFlags.Has(zerofs.Truncate) {
			entity.Truncate()
		}
		log.Debug.Printf("fs: open file %s (%s)", p, descriptorFlags)
		return newHandle(entity, entName, descriptorFlags, h.Root(), chain), nil
	default:
		return nil, errors.E(op, p.Name(), errors.NotAFileOrDir)
	}
}

// requiredCaps derives the capabilities the UCAN oracle must confirm
// for an open with the given flags.
func requiredCaps(p path.Path, openFlags zerofs.OpenFlags, descriptorFlags zerofs.DescriptorFlags) []ucan.Capability {
	resource := p.Name()
	caps := []ucan.Capability{{Resource: resource, Ability: ucan.AbilityRead}}
	if descriptorFlags.Has(zerofs.Write) || openFlags.Has(zerofs.Truncate) {
		caps = append(caps, ucan.Capability{Resource: resource, Ability: ucan.AbilityWrite})
	}
	if openFlags.Has(zerofs.Create) {
		caps = append(caps, ucan.Capability{Resource: resource, Ability: ucan.AbilityCreate})
	}
	if descriptorFlags.Has(zerofs.MutateDir) {
		caps = append(caps, ucan.Capability{Resource: resource, Ability: ucan.AbilityMutate})
	}
	return caps
}
