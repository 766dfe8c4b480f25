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
	"crypto/x509"
	"encoding/json"
	"fmt"

	"github.com/sigstore/certkeys/pkg/usage"
)

// Signature is a detached signature and the metadata that determines which
// keys it can be checked against.
type Signature struct {
	// ID identifies the signing key. Nil matches any key.
	ID     *ID
	Bytes  []byte
	Family x509.PublicKeyAlgorithm
	Hash   crypto.Hash
	Usage  usage.Usage
}

var (
	signatureFamilies = []x509.PublicKeyAlgorithm{x509.RSA, x509.ECDSA}
	signatureHashes   = []crypto.Hash{crypto.SHA256, crypto.SHA384, crypto.SHA512}
)

type signatureJSON struct {
	ID        *ID          `json:"id,omitempty"`
	Usage     *usage.Usage `json:"usage"`
	Algorithm string       `json:"algorithm"`
	Hash      string       `json:"hash"`
	Signature []byte       `json:"signature"`
}

// MarshalJSON implements json.Marshaler.
func (s *Signature) MarshalJSON() ([]byte, error) {
	if s.Family != x509.RSA && s.Family != x509.ECDSA {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKey, s.Family)
	}
	if err := checkHash(s.Hash); err != nil {
		return nil, err
	}
	return json.Marshal(signatureJSON{
		ID:        s.ID,
		Usage:     &s.Usage,
		Algorithm: s.Family.String(),
		Hash:      s.Hash.String(),
		Signature: s.Bytes,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var aux signatureJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if aux.Usage == nil || !aux.Usage.Valid() {
		return fmt.Errorf("%w: missing signature usage", ErrInvalidData)
	}
	fam, ok := parseFamily(aux.Algorithm)
	if !ok {
		return fmt.Errorf("%w: unknown signature algorithm %q", ErrInvalidData, aux.Algorithm)
	}
	hash, ok := parseHash(aux.Hash)
	if !ok {
		return fmt.Errorf("%w: unknown digest algorithm %q", ErrInvalidData, aux.Hash)
	}
	if len(aux.Signature) == 0 {
		return fmt.Errorf("%w: empty signature", ErrInvalidData)
	}
	*s = Signature{
		ID:     aux.ID,
		Bytes:  aux.Signature,
		Family: fam,
		Hash:   hash,
		Usage:  *aux.Usage,
	}
	return nil
}

func parseFamily(name string) (x509.PublicKeyAlgorithm, bool) {
	for _, f := range signatureFamilies {
		if f.String() == name {
			return f, true
		}
	}
	return x509.UnknownPublicKeyAlgorithm, false
}

func parseHash(name string) (crypto.Hash, bool) {
	for _, h := range signatureHashes {
		if h.String() == name {
			return h, true
		}
	}
	return 0, false
}
