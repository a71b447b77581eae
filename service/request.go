// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package service

import (
	"encoding/json"

	"zerofs.io/errors"
	"zerofs.io/zerofs"
)

// EntityOperation is the request envelope of the user interface: an
// operation applied to an entity. The identifier is absent when the
// operation targets the root directory of the tree.
type EntityOperation struct {
	Identifier *string   `json:"identifier,omitempty"`
	Operation  Operation `json:"operation"`
}

// Operation carries the operation kind and its parameters.
type Operation struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// The operation kinds understood by the service.
const (
	OpOpenAt = "open_at"
)

// OpenAtParams are the parameters of an open_at operation. The flag
// fields arrive as raw bytes and are validated before use: unknown
// bits are rejected, they do not pass through.
type OpenAtParams struct {
	Path            string `json:"path"`
	PathFlags       uint8  `json:"path_flags"`
	OpenFlags       uint8  `json:"open_flags"`
	DescriptorFlags uint8  `json:"descriptor_flags"`
}

// flags validates the raw flag bytes and returns the typed sets.
func (p *OpenAtParams) flags() (zerofs.PathFlags, zerofs.OpenFlags, zerofs.DescriptorFlags, error) {
	const op = "service.OpenAt"
	pathFlags := zerofs.PathFlags(p.PathFlags)
	if !pathFlags.IsValid() {
		return 0, 0, 0, errors.E(op, zerofs.PathName(p.Path), errors.InvalidPathFlag, errors.Errorf("%#x", p.PathFlags))
	}
	openFlags := zerofs.OpenFlags(p.OpenFlags)
	if !openFlags.IsValid() {
		return 0, 0, 0, errors.E(op, zerofs.PathName(p.Path), errors.InvalidOpenFlag, errors.Errorf("%#x", p.OpenFlags))
	}
	descriptorFlags := zerofs.DescriptorFlags(p.DescriptorFlags)
	if !descriptorFlags.IsValid() {
		return 0, 0, 0, errors.E(op, zerofs.PathName(p.Path), errors.InvalidEntityFlag, errors.Errorf("%#x", p.DescriptorFlags))
	}
	return pathFlags, openFlags, descriptorFlags, nil
}

// OpenAtResult is the answer to an open_at operation: the CID the
// opened entity will have once published, its name in its parent, and
// the CID of the root after any flush the operation required.
type OpenAtResult struct {
	Entity string `json:"entity"`
	Name   string `json:"name,omitempty"`
	Root   string `json:"root"`
}
