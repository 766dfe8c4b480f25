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
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/sigstore/certkeys/pkg/message"
	"github.com/sigstore/sigstore/pkg/signature"
)

// Verifier checks a signature over a message.
type Verifier interface {
	Verify(msg message.Encoder, sig *Signature) error
}

// Signer produces a signature over a message.
type Signer interface {
	Sign(msg message.Encoder) (*Signature, error)
}

var (
	_ Verifier = (*PublicKey)(nil)
	_ Signer   = (*PrivateKey)(nil)
)

// loadVerifier and loadSigner bind the underlying primitive to a key and
// digest algorithm. Tests replace them to observe whether the primitive runs.
var (
	loadVerifier = func(k *PublicKey) (signature.Verifier, error) {
		switch pub := k.Key.(type) {
		case *rsa.PublicKey:
			return signature.LoadRSAPSSVerifier(pub, k.Hash, pssOptions(k.Hash))
		case *ecdsa.PublicKey:
			return signature.LoadECDSAVerifier(pub, k.Hash)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, k.Key)
		}
	}
	loadSigner = func(k *PrivateKey) (signature.Signer, error) {
		switch priv := k.Key.(type) {
		case *rsa.PrivateKey:
			return signature.LoadRSAPSSSigner(priv, k.Hash, pssOptions(k.Hash))
		case *ecdsa.PrivateKey:
			return signature.LoadECDSASigner(priv, k.Hash)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, k.Key)
		}
	}
)

// pssOptions fixes the PSS salt to the digest length.
func pssOptions(hash crypto.Hash) *rsa.PSSOptions {
	return &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash}
}

// Verify checks sig over the canonical encoding of msg. The signature's
// usage, family and digest algorithm must equal the key's, and its identity,
// when present, must equal the key's identity; otherwise ErrInvalidInput is
// returned without encoding the message or running the primitive. Errors
// from the primitive itself are returned unchanged.
func (k *PublicKey) Verify(msg message.Encoder, sig *Signature) error {
	if err := k.applies(sig); err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: missing message", ErrInvalidInput)
	}

	verifier, err := loadVerifier(k)
	if err != nil {
		return err
	}
	encoded, err := message.Bytes(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	return verifier.VerifySignature(bytes.NewReader(sig.Bytes), bytes.NewReader(encoded))
}

func (k *PublicKey) applies(sig *Signature) error {
	switch {
	case sig == nil:
		return fmt.Errorf("%w: missing signature", ErrInvalidInput)
	case sig.Usage != k.Usage:
		return fmt.Errorf("%w: signature usage %s, key usage %s", ErrInvalidInput, sig.Usage, k.Usage)
	case sig.Family != k.Family():
		return fmt.Errorf("%w: signature algorithm %s, key algorithm %s", ErrInvalidInput, sig.Family, k.Family())
	case sig.Hash != k.Hash:
		return fmt.Errorf("%w: signature digest %v, key digest %v", ErrInvalidInput, sig.Hash, k.Hash)
	case sig.ID != nil && !equalID(sig.ID, k.ID):
		return fmt.Errorf("%w: signature made by key %s", ErrInvalidInput, sig.ID)
	}
	return nil
}

// Sign signs the canonical encoding of msg. The returned signature carries
// the key's identity, family, digest algorithm and usage.
func (k *PrivateKey) Sign(msg message.Encoder) (*Signature, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: missing message", ErrInvalidInput)
	}
	fam, err := family(k.Key)
	if err != nil {
		return nil, err
	}
	signer, err := loadSigner(k)
	if err != nil {
		return nil, err
	}
	encoded, err := message.Bytes(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	raw, err := signer.SignMessage(bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	return &Signature{
		ID:     cloneID(k.ID),
		Bytes:  raw,
		Family: fam,
		Hash:   k.Hash,
		Usage:  k.Usage,
	}, nil
}
