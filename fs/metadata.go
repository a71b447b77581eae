// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fs

import (
	"zerofs.io/errors"
	"zerofs.io/zerofs"
)

// Metadata is the persisted descriptive data of an entity. Size is
// deliberately absent: it is computed on demand from the content
// graph, never stored, so that rewriting content cannot leave a stale
// size behind.
type Metadata struct {
	// EntityType is the kind tag of the node.
	EntityType zerofs.EntityType

	// CreatedAt is the time the entity was created.
	CreatedAt zerofs.Time

	// ModifiedAt is the time of the last modification.
	ModifiedAt zerofs.Time
}

// NewMetadata returns metadata for a freshly created entity of the
// given type, with both timestamps set to now.
func NewMetadata(t zerofs.EntityType) Metadata {
	now := zerofs.Now()
	return Metadata{
		EntityType: t,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// touch returns a copy of m with ModifiedAt set to now.
func (m Metadata) touch() Metadata {
	m.ModifiedAt = zerofs.Now()
	return m
}

// metadataSchema is the canonical serialized form of Metadata.
type metadataSchema struct {
	EntityType string `cbor:"entity_type"`
	CreatedAt  int64  `cbor:"created_at"`
	ModifiedAt int64  `cbor:"modified_at"`
}

func (m Metadata) schema() metadataSchema {
	return metadataSchema{
		EntityType: m.EntityType.String(),
		CreatedAt:  int64(m.CreatedAt),
		ModifiedAt: int64(m.ModifiedAt),
	}
}

func metadataFromSchema(s metadataSchema) (Metadata, error) {
	t, ok := zerofs.ParseEntityType(s.EntityType)
	if !ok {
		return Metadata{}, errors.E(errors.Store, errors.Errorf("unknown entity type %q", s.EntityType))
	}
	return Metadata{
		EntityType: t,
		CreatedAt:  zerofs.Time(s.CreatedAt),
		ModifiedAt: zerofs.Time(s.ModifiedAt),
	}, nil
}
