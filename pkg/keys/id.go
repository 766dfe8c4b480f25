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
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// ID is a 128-bit key identity. Keys and signatures hold a *ID, nil meaning
// the identity is absent.
type ID [16]byte

// ParseID parses the hex form of an ID.
func ParseID(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decoding id: %w", err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IDFromKeyIdentifier returns the leading 128 bits of an X.509 key
// identifier, or nil when it is too short.
func IDFromKeyIdentifier(keyID []byte) *ID {
	var id ID
	if len(keyID) < len(id) {
		return nil
	}
	copy(id[:], keyID)
	return &id
}

// FingerprintID derives an ID from the SHA-256 digest of the PKIX encoding
// of pub.
func FingerprintID(pub crypto.PublicKey) (ID, error) {
	pkixKey, err := cryptoutils.MarshalPublicKeyToDER(pub)
	if err != nil {
		return ID{}, fmt.Errorf("marshaling public key: %w", err)
	}
	digest := sha256.Sum256(pkixKey)
	var id ID
	copy(id[:], digest[:])
	return id, nil
}

func cloneID(id *ID) *ID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func equalID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
