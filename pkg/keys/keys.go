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
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha512" // SHA-384 and SHA-512 digests
	"crypto/x509"
	"fmt"

	"github.com/sigstore/certkeys/pkg/usage"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"go.step.sm/crypto/pemutil"
)

var (
	rsaGenerateKey   = rsa.GenerateKey
	ecdsaGenerateKey = ecdsa.GenerateKey
)

// PublicKeySource is anything a PublicKey can be extracted from, such as a
// certificate or the PublicKey itself.
type PublicKeySource interface {
	PublicKey() (*PublicKey, error)
}

// PublicKey is an RSA or ECDSA public key together with the usage it serves
// and the digest algorithm signatures over it use.
type PublicKey struct {
	ID    *ID
	Key   crypto.PublicKey
	Hash  crypto.Hash
	Usage usage.Usage
}

// PrivateKey is the private counterpart of PublicKey.
type PrivateKey struct {
	ID    *ID
	Key   crypto.Signer
	Hash  crypto.Hash
	Usage usage.Usage
}

// Option configures optional key metadata.
type Option func(*keyOptions)

type keyOptions struct {
	id *ID
}

// WithID attaches an identity to the key.
func WithID(id ID) Option {
	return func(o *keyOptions) {
		o.id = &id
	}
}

func applyOptions(opts []Option) keyOptions {
	o := keyOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewPublicKey wraps an RSA or ECDSA public key.
func NewPublicKey(key crypto.PublicKey, hash crypto.Hash, u usage.Usage, opts ...Option) (*PublicKey, error) {
	if _, err := family(key); err != nil {
		return nil, err
	}
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	return &PublicKey{ID: o.id, Key: key, Hash: hash, Usage: u}, nil
}

// DecodePublicKey parses a PKIX DER public key.
func DecodePublicKey(der []byte, hash crypto.Hash, u usage.Usage, opts ...Option) (*PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing public key: %v", ErrInvalidData, err)
	}
	return NewPublicKey(key, hash, u, opts...)
}

// PublicKey returns k, so that a PublicKey can serve as its own reference.
func (k *PublicKey) PublicKey() (*PublicKey, error) {
	return k, nil
}

// Family returns the key's algorithm family, x509.RSA or x509.ECDSA.
func (k *PublicKey) Family() x509.PublicKeyAlgorithm {
	f, _ := family(k.Key)
	return f
}

// Encode returns the PKIX DER encoding of the key. Metadata is not included.
func (k *PublicKey) Encode() ([]byte, error) {
	return cryptoutils.MarshalPublicKeyToDER(k.Key)
}

func (k *PublicKey) String() string {
	encoded, err := cryptoutils.MarshalPublicKeyToPEM(k.Key)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// DecodePrivateKey parses a DER private key (PKCS#8, PKCS#1 or SEC1) and
// checks that its public half equals the reference public key. Identity,
// usage and digest algorithm are taken from the reference, not the bytes.
func DecodePrivateKey(der []byte, ref PublicKeySource) (*PrivateKey, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: missing reference public key", ErrInvalidInput)
	}
	parsed, err := pemutil.ParseDER(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", ErrInvalidData, err)
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a private key", ErrInvalidData, parsed)
	}
	if _, err := family(signer); err != nil {
		return nil, err
	}
	pub, err := ref.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("getting reference public key: %w", err)
	}
	if pub == nil || pub.Key == nil {
		return nil, fmt.Errorf("%w: missing reference public key", ErrInvalidInput)
	}
	if err := cryptoutils.EqualKeys(signer.Public(), pub.Key); err != nil {
		return nil, fmt.Errorf("%w: private key does not match reference: %v", ErrInvalidData, err)
	}
	return &PrivateKey{
		ID:    cloneID(pub.ID),
		Key:   signer,
		Hash:  pub.Hash,
		Usage: pub.Usage,
	}, nil
}

// Encode returns the PKCS#8 DER encoding of the key. Metadata is not
// included and must travel separately.
func (k *PrivateKey) Encode() ([]byte, error) {
	return cryptoutils.MarshalPrivateKeyToDER(k.Key)
}

// Public returns the public half of k with the same metadata.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{
		ID:    cloneID(k.ID),
		Key:   k.Key.Public(),
		Hash:  k.Hash,
		Usage: k.Usage,
	}
}

// GenerateRSA generates an RSA key pair of the given modulus size.
func GenerateRSA(bits int, hash crypto.Hash, u usage.Usage, opts ...Option) (*PrivateKey, error) {
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	priv, err := rsaGenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	o := applyOptions(opts)
	return &PrivateKey{ID: o.id, Key: priv, Hash: hash, Usage: u}, nil
}

// GenerateECDSA generates an ECDSA key pair on the given curve.
func GenerateECDSA(curve elliptic.Curve, hash crypto.Hash, u usage.Usage, opts ...Option) (*PrivateKey, error) {
	if err := checkHash(hash); err != nil {
		return nil, err
	}
	priv, err := ecdsaGenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ECDSA key: %w", err)
	}
	o := applyOptions(opts)
	return &PrivateKey{ID: o.id, Key: priv, Hash: hash, Usage: u}, nil
}

// DefaultHash returns the digest algorithm conventionally paired with pub.
func DefaultHash(pub crypto.PublicKey) (crypto.Hash, error) {
	switch pk := pub.(type) {
	case *rsa.PublicKey:
		return crypto.SHA256, nil
	case *ecdsa.PublicKey:
		switch pk.Curve {
		case elliptic.P256():
			return crypto.SHA256, nil
		case elliptic.P384():
			return crypto.SHA384, nil
		case elliptic.P521():
			return crypto.SHA512, nil
		default:
			return 0, fmt.Errorf("%w: unsupported curve %s", ErrUnsupportedKey, pk.Curve.Params().Name)
		}
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
}

// family accepts both halves of a key pair.
func family(key any) (x509.PublicKeyAlgorithm, error) {
	switch key.(type) {
	case *rsa.PublicKey, *rsa.PrivateKey:
		return x509.RSA, nil
	case *ecdsa.PublicKey, *ecdsa.PrivateKey:
		return x509.ECDSA, nil
	default:
		return x509.UnknownPublicKeyAlgorithm, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}

func checkHash(hash crypto.Hash) error {
	if !hash.Available() {
		return fmt.Errorf("%w: digest algorithm %d is not available", ErrUnsupportedKey, uint(hash))
	}
	return nil
}
