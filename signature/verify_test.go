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

package signature_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/blinklabs-io/quorum/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBody = []byte("canonical transaction body")

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, testBody)
	der := append(mustHex(t, "302a300506032b6570032100"), pub...)

	for name, key := range map[string][]byte{"raw": pub, "der": der} {
		t.Run(name, func(t *testing.T) {
			parsed, err := signature.ParsePublicKey(key)
			require.NoError(t, err)
			assert.Equal(t, signature.KeyTypeEd25519, parsed.Type())
			assert.Equal(t, []byte(pub), parsed.Bytes())
			assert.True(t, parsed.Verify(testBody, sig))
			assert.False(t, parsed.Verify([]byte("other body"), sig))
			assert.False(t, parsed.Verify(testBody, sig[:10]))
		})
	}
}

func signSecp256k1(t *testing.T, priv *secp256k1.PrivateKey, body []byte) []byte {
	t.Helper()
	compact := ecdsa.SignCompact(priv, signature.Keccak256(body), true)
	// Drop the recovery byte, leaving r || s
	return compact[1:]
}

func TestSecp256k1(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	sig := signSecp256k1(t, priv, testBody)
	require.Len(t, sig, 64)
	compressed := priv.PubKey().SerializeCompressed()
	der := append(mustHex(t, "302d300706052b8104000a032200"), compressed...)

	keys := map[string][]byte{
		"compressed":   compressed,
		"uncompressed": priv.PubKey().SerializeUncompressed(),
		"der":          der,
	}
	for name, key := range keys {
		t.Run(name, func(t *testing.T) {
			parsed, err := signature.ParsePublicKey(key)
			require.NoError(t, err)
			assert.Equal(t, signature.KeyTypeEcdsaSecp256k1, parsed.Type())
			assert.True(t, parsed.Verify(testBody, sig))
			assert.False(t, parsed.Verify([]byte("other body"), sig))
		})
	}

	parsed, err := signature.ParsePublicKey(compressed)
	require.NoError(t, err)
	zero := make([]byte, 64)
	assert.False(t, parsed.Verify(testBody, zero))
	overflow := make([]byte, 64)
	for i := range overflow {
		overflow[i] = 0xff
	}
	assert.False(t, parsed.Verify(testBody, overflow))
}

func TestSecp256k1DerSignature(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	der := ecdsa.Sign(priv, signature.Keccak256(testBody)).Serialize()
	require.Equal(t, byte(0x30), der[0])

	parsed, err := signature.ParsePublicKey(priv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	assert.True(t, parsed.Verify(testBody, der))
	assert.False(t, parsed.Verify([]byte("other body"), der))
	// Truncated DER is neither DER nor r || s
	assert.False(t, parsed.Verify(testBody, der[:len(der)-1]))
}

func TestParsePublicKeyRejects(t *testing.T) {
	_, err := signature.ParsePublicKey([]byte{1, 2, 3})
	require.ErrorIs(t, err, signature.ErrUnsupportedKey)
	// 33 bytes that are not a curve point
	bad := make([]byte, 33)
	bad[0] = 0x02
	for i := 1; i < len(bad); i++ {
		bad[i] = 0xff
	}
	_, err = signature.ParsePublicKey(bad)
	require.ErrorIs(t, err, signature.ErrUnsupportedKey)
}

func TestDefaultVerifier(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	v := signature.DefaultVerifier{}
	require.NoError(t, v.Verify(pub, testBody, ed25519.Sign(priv, testBody)))
	require.ErrorIs(
		t,
		v.Verify(pub, testBody, ed25519.Sign(priv, []byte("x"))),
		signature.ErrInvalidSignature,
	)
	require.ErrorIs(t, v.Verify(nil, testBody, nil), signature.ErrUnsupportedKey)
	assert.Equal(t, "ED25519", signature.KeyTypeEd25519.String())
}
