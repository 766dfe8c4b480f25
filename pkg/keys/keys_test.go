// Copyright 2025 The Sigstore Authors
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

package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sigstore/certkeys/pkg/message"
	"github.com/sigstore/certkeys/pkg/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testID  = ID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	otherID = ID{0xff}
)

func newRSA(t *testing.T, bits int, hash crypto.Hash, u usage.Usage, opts ...Option) *PrivateKey {
	t.Helper()
	k, err := GenerateRSA(bits, hash, u, opts...)
	require.NoError(t, err)
	return k
}

func newECDSA(t *testing.T, curve elliptic.Curve, hash crypto.Hash, u usage.Usage, opts ...Option) *PrivateKey {
	t.Helper()
	k, err := GenerateECDSA(curve, hash, u, opts...)
	require.NoError(t, err)
	return k
}

type failingSource struct{}

func (failingSource) PublicKey() (*PublicKey, error) {
	return nil, errors.New("no certificate")
}

func TestDecodePrivateKey(t *testing.T) {
	rsaKey := newRSA(t, 2048, crypto.SHA256, usage.ChainSigning, WithID(testID))
	ecKey := newECDSA(t, elliptic.P384(), crypto.SHA384, usage.KeyEncipherment)
	otherEC := newECDSA(t, elliptic.P384(), crypto.SHA384, usage.KeyEncipherment)

	rsaDER, err := rsaKey.Encode()
	require.NoError(t, err)
	ecDER, err := ecKey.Encode()
	require.NoError(t, err)
	rsaPKIX, err := rsaKey.Public().Encode()
	require.NoError(t, err)
	sec1, err := x509.MarshalECPrivateKey(ecKey.Key.(*ecdsa.PrivateKey))
	require.NoError(t, err)
	_, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	edDER, err := x509.MarshalPKCS8PrivateKey(edPriv)
	require.NoError(t, err)

	tests := []struct {
		name      string
		der       []byte
		ref       PublicKeySource
		wantErr   error
		wantErrIn string
	}{
		{
			name: "rsa pkcs8",
			der:  rsaDER,
			ref:  rsaKey.Public(),
		},
		{
			name: "rsa pkcs1",
			der:  x509.MarshalPKCS1PrivateKey(rsaKey.Key.(*rsa.PrivateKey)),
			ref:  rsaKey.Public(),
		},
		{
			name: "ecdsa pkcs8",
			der:  ecDER,
			ref:  ecKey.Public(),
		},
		{
			name: "ecdsa sec1",
			der:  sec1,
			ref:  ecKey.Public(),
		},
		{
			name:    "mismatched reference",
			der:     ecDER,
			ref:     otherEC.Public(),
			wantErr: ErrInvalidData,
		},
		{
			name:    "different family",
			der:     rsaDER,
			ref:     ecKey.Public(),
			wantErr: ErrInvalidData,
		},
		{
			name:    "garbage",
			der:     []byte("not a key"),
			ref:     rsaKey.Public(),
			wantErr: ErrInvalidData,
		},
		{
			name:    "public key bytes",
			der:     rsaPKIX,
			ref:     rsaKey.Public(),
			wantErr: ErrInvalidData,
		},
		{
			name:    "ed25519",
			der:     edDER,
			ref:     rsaKey.Public(),
			wantErr: ErrUnsupportedKey,
		},
		{
			name:    "nil reference",
			der:     rsaDER,
			ref:     nil,
			wantErr: ErrInvalidInput,
		},
		{
			name:    "nil public key reference",
			der:     rsaDER,
			ref:     (*PublicKey)(nil),
			wantErr: ErrInvalidInput,
		},
		{
			name:      "reference unavailable",
			der:       rsaDER,
			ref:       failingSource{},
			wantErrIn: "no certificate",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DecodePrivateKey(test.der, test.ref)
			switch {
			case test.wantErr != nil:
				assert.ErrorIs(t, err, test.wantErr)
				assert.Nil(t, got)
				return
			case test.wantErrIn != "":
				assert.ErrorContains(t, err, test.wantErrIn)
				return
			}
			require.NoError(t, err)
			ref, err := test.ref.PublicKey()
			require.NoError(t, err)
			assert.Equal(t, ref.Usage, got.Usage)
			assert.Equal(t, ref.Hash, got.Hash)
			assert.Equal(t, ref.ID, got.ID)
			assert.NoError(t, ref.Verify(message.Raw(""), mustSign(t, got)))
		})
	}
}

func mustSign(t *testing.T, k *PrivateKey) *Signature {
	t.Helper()
	sig, err := k.Sign(message.Raw(""))
	require.NoError(t, err)
	return sig
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, k := range []*PrivateKey{
		newRSA(t, 2048, crypto.SHA512, usage.RootSigning),
		newECDSA(t, elliptic.P256(), crypto.SHA256, usage.OwnerSigning),
		newECDSA(t, elliptic.P521(), crypto.SHA512, usage.EndorsementSigning),
	} {
		der, err := k.Encode()
		require.NoError(t, err)
		decoded, err := DecodePrivateKey(der, k.Public())
		require.NoError(t, err)
		again, err := decoded.Encode()
		require.NoError(t, err)
		assert.Equal(t, der, again)
	}
}

func TestDecodePublicKey(t *testing.T) {
	k := newECDSA(t, elliptic.P256(), crypto.SHA256, usage.EndpointSigning)
	der, err := k.Public().Encode()
	require.NoError(t, err)

	pub, err := DecodePublicKey(der, crypto.SHA256, usage.EndpointSigning, WithID(testID))
	require.NoError(t, err)
	assert.Equal(t, x509.ECDSA, pub.Family())
	require.NotNil(t, pub.ID)
	assert.Equal(t, testID, *pub.ID)
	assert.True(t, strings.HasPrefix(pub.String(), "-----BEGIN PUBLIC KEY-----"))

	_, err = DecodePublicKey([]byte{0x30, 0x00}, crypto.SHA256, usage.EndpointSigning)
	assert.ErrorIs(t, err, ErrInvalidData)
	_, err = DecodePublicKey(der, crypto.Hash(0), usage.EndpointSigning)
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestNewPublicKey(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = NewPublicKey(edPub, crypto.SHA512, usage.RootSigning)
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	k := newECDSA(t, elliptic.P256(), crypto.SHA256, usage.RootSigning)
	pub, err := NewPublicKey(k.Key.Public(), crypto.SHA256, usage.RootSigning)
	require.NoError(t, err)
	assert.Nil(t, pub.ID)
	same, err := pub.PublicKey()
	require.NoError(t, err)
	assert.Same(t, pub, same)
}

func TestGenerateErrors(t *testing.T) {
	_, err := GenerateRSA(2048, crypto.Hash(0), usage.RootSigning)
	assert.ErrorIs(t, err, ErrUnsupportedKey)

	oldRSA := rsaGenerateKey
	rsaGenerateKey = func(io.Reader, int) (*rsa.PrivateKey, error) { return nil, errors.New("boom") }
	defer func() { rsaGenerateKey = oldRSA }()
	_, err = GenerateRSA(2048, crypto.SHA256, usage.RootSigning)
	assert.ErrorContains(t, err, "generating RSA key: boom")

	oldEC := ecdsaGenerateKey
	ecdsaGenerateKey = func(elliptic.Curve, io.Reader) (*ecdsa.PrivateKey, error) { return nil, errors.New("gen err") }
	defer func() { ecdsaGenerateKey = oldEC }()
	_, err = GenerateECDSA(elliptic.P256(), crypto.SHA256, usage.RootSigning)
	assert.ErrorContains(t, err, "generating ECDSA key: gen err")
}

func TestDefaultHash(t *testing.T) {
	tests := []struct {
		name string
		key  crypto.PublicKey
		want crypto.Hash
	}{
		{"rsa", newRSA(t, 2048, crypto.SHA256, usage.RootSigning).Key.Public(), crypto.SHA256},
		{"p256", newECDSA(t, elliptic.P256(), crypto.SHA256, usage.RootSigning).Key.Public(), crypto.SHA256},
		{"p384", newECDSA(t, elliptic.P384(), crypto.SHA256, usage.RootSigning).Key.Public(), crypto.SHA384},
		{"p521", newECDSA(t, elliptic.P521(), crypto.SHA256, usage.RootSigning).Key.Public(), crypto.SHA512},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DefaultHash(test.key)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}

	p224 := newECDSA(t, elliptic.P224(), crypto.SHA256, usage.RootSigning)
	_, err := DefaultHash(p224.Key.Public())
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}

func TestIDs(t *testing.T) {
	parsed, err := ParseID(testID.String())
	require.NoError(t, err)
	assert.Equal(t, testID, parsed)

	_, err = ParseID("0102")
	assert.ErrorContains(t, err, "id must be 16 bytes")
	_, err = ParseID("zz")
	assert.Error(t, err)

	assert.Nil(t, IDFromKeyIdentifier([]byte{1, 2, 3}))
	skid := make([]byte, 20)
	skid[0] = 0xaa
	id := IDFromKeyIdentifier(skid)
	require.NotNil(t, id)
	assert.Equal(t, byte(0xaa), id[0])

	k := newECDSA(t, elliptic.P256(), crypto.SHA256, usage.RootSigning)
	first, err := FingerprintID(k.Key.Public())
	require.NoError(t, err)
	second, err := FingerprintID(k.Public().Key)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEqual(t, ID{}, first)
}
