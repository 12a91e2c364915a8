// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package signature checks approver signatures over canonical transaction
// bodies
package signature

import (
	"bytes"
	"crypto/ed25519"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

var (
	ErrUnsupportedKey   = errors.New("unsupported public key")
	ErrInvalidSignature = errors.New("invalid signature")
)

// KeyType identifies the signing scheme of a public key
type KeyType int

const (
	KeyTypeUnknown KeyType = iota
	KeyTypeEd25519
	KeyTypeEcdsaSecp256k1
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeEd25519:
		return "ED25519"
	case KeyTypeEcdsaSecp256k1:
		return "ECDSA_SECP256K1"
	default:
		return "UNKNOWN"
	}
}

// DER SubjectPublicKeyInfo prefixes for the two key types
var (
	ed25519DerPrefix   = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}
	secp256k1DerPrefix = []byte{0x30, 0x2d, 0x30, 0x07, 0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x0a, 0x03, 0x22, 0x00}
)

const ecdsaSignatureSize = 64

// PublicKey is a parsed approver key
type PublicKey struct {
	raw     []byte
	ecdsa   *secp256k1.PublicKey
	keyType KeyType
}

// Type returns the signing scheme of the key
func (p *PublicKey) Type() KeyType {
	return p.keyType
}

// Bytes returns the raw key without any DER prefix
func (p *PublicKey) Bytes() []byte {
	return bytes.Clone(p.raw)
}

// ParsePublicKey accepts raw or DER encoded ED25519 and ECDSA secp256k1 keys.
// A raw 33 or 65 byte key is secp256k1; a raw 32 byte key is ED25519.
func ParsePublicKey(key []byte) (*PublicKey, error) {
	switch {
	case len(key) == len(ed25519DerPrefix)+ed25519.PublicKeySize &&
		bytes.HasPrefix(key, ed25519DerPrefix):
		return parseEd25519(key[len(ed25519DerPrefix):])
	case len(key) == len(secp256k1DerPrefix)+secp256k1.PubKeyBytesLenCompressed &&
		bytes.HasPrefix(key, secp256k1DerPrefix):
		return parseSecp256k1(key[len(secp256k1DerPrefix):])
	case len(key) == ed25519.PublicKeySize:
		return parseEd25519(key)
	case len(key) == secp256k1.PubKeyBytesLenCompressed,
		len(key) == secp256k1.PubKeyBytesLenUncompressed:
		return parseSecp256k1(key)
	default:
		return nil, ErrUnsupportedKey
	}
}

func parseEd25519(raw []byte) (*PublicKey, error) {
	return &PublicKey{raw: bytes.Clone(raw), keyType: KeyTypeEd25519}, nil
}

func parseSecp256k1(raw []byte) (*PublicKey, error) {
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Join(ErrUnsupportedKey, err)
	}
	return &PublicKey{
		raw:     bytes.Clone(raw),
		ecdsa:   pub,
		keyType: KeyTypeEcdsaSecp256k1,
	}, nil
}

// Verify checks a signature over body. ED25519 signs the body itself.
// ECDSA secp256k1 signs the keccak-256 digest of the body, with the
// signature encoded as 32 byte r followed by 32 byte s, or as DER.
func (p *PublicKey) Verify(body, sig []byte) bool {
	switch p.keyType {
	case KeyTypeEd25519:
		if len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(p.raw), body, sig)
	case KeyTypeEcdsaSecp256k1:
		parsed, ok := parseEcdsaSignature(sig)
		if !ok {
			return false
		}
		return parsed.Verify(Keccak256(body), p.ecdsa)
	default:
		return false
	}
}

func parseEcdsaSignature(sig []byte) (*ecdsa.Signature, bool) {
	if len(sig) > 0 && sig[0] == 0x30 {
		if parsed, err := ecdsa.ParseDERSignature(sig); err == nil {
			return parsed, true
		}
	}
	if len(sig) != ecdsaSignatureSize {
		return nil, false
	}
	var r, s secp256k1.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		// Overflowed the group order
		return nil, false
	}
	if r.IsZero() || s.IsZero() {
		return nil, false
	}
	return ecdsa.NewSignature(&r, &s), true
}

// Keccak256 returns the legacy keccak-256 digest used by ECDSA keys
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Verifier checks a signature against a public key and message body
type Verifier interface {
	Verify(publicKey, body, sig []byte) error
}

// DefaultVerifier verifies with ParsePublicKey
type DefaultVerifier struct{}

// Verify returns ErrUnsupportedKey for unparseable keys and
// ErrInvalidSignature when the signature does not match
func (DefaultVerifier) Verify(publicKey, body, sig []byte) error {
	key, err := ParsePublicKey(publicKey)
	if err != nil {
		return err
	}
	if !key.Verify(body, sig) {
		return ErrInvalidSignature
	}
	return nil
}
