// Copyright 2024 The Zerofs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package factotum encapsulates the crypto operations on a service's
// signing key: signing, and deriving the did:key identity that names
// the file system instance for authorization purposes.
package factotum // import "zerofs.io/factotum"

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/multiformats/go-multibase"
	"golang.org/x/crypto/ed25519"

	"zerofs.io/errors"
	"zerofs.io/zerofs"
)

// secretFile is the name of the key file inside a key directory. It
// holds the hex form of a 32-byte Ed25519 seed.
const secretFile = "secret.zerofskey"

// ed25519Pub is the multicodec prefix for an Ed25519 public key,
// varint-encoded, as used in did:key identifiers.
var ed25519Pub = []byte{0xed, 0x01}

// Factotum holds a service's Ed25519 key pair.
type Factotum struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// New loads the key from dir/secret.zerofskey.
func New(dir string) (*Factotum, error) {
	const op = "factotum.New"
	b, err := os.ReadFile(filepath.Join(dir, secretFile))
	if os.IsNotExist(err) {
		return nil, errors.E(op, errors.NotFound, err)
	}
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, errors.E(op, errors.Did, err)
	}
	return NewFromSeed(seed)
}

// NewFromSeed builds a Factotum from a 32-byte Ed25519 seed.
func NewFromSeed(seed []byte) (*Factotum, error) {
	const op = "factotum.NewFromSeed"
	if len(seed) != ed25519.SeedSize {
		return nil, errors.E(op, errors.Did, errors.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}
	private := ed25519.NewKeyFromSeed(seed)
	return &Factotum{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// Generate creates a Factotum with a fresh random key. It is intended
// for tests and ephemeral single-process deployments.
func Generate() (*Factotum, error) {
	const op = "factotum.Generate"
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	return &Factotum{private: private, public: public}, nil
}

// Sign signs the message with the service key.
func (f *Factotum) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(f.private, message), nil
}

// Verify reports whether sig is a valid signature of message by the
// service key.
func (f *Factotum) Verify(message, sig []byte) bool {
	return ed25519.Verify(f.public, message, sig)
}

// PublicKey returns the service's public key.
func (f *Factotum) PublicKey() ed25519.PublicKey {
	return f.public
}

// DID returns the did:key identifier of the service key: the
// base58btc multibase encoding of the multicodec-prefixed public key.
func (f *Factotum) DID() (zerofs.DID, error) {
	const op = "factotum.DID"
	b := make([]byte, 0, len(ed25519Pub)+len(f.public))
	b = append(b, ed25519Pub...)
	b = append(b, f.public...)
	enc, err := multibase.Encode(multibase.Base58BTC, b)
	if err != nil {
		return "", errors.E(op, errors.Did, err)
	}
	return zerofs.DID("did:key:" + enc), nil
}
