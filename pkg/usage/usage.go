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

// Package usage defines the roles a key or signature can play in a
// certificate hierarchy.
package usage

import (
	"fmt"
	"sort"
)

// Usage is the role a key or signature serves. Values only compare for
// equality; there is no ordering between them.
type Usage uint32

const (
	// RootSigning keys sign the certificates of chain-signing keys.
	RootSigning Usage = 0x0000
	// ChainSigning keys sign endorsement certificates.
	ChainSigning Usage = 0x0013
	// Invalid marks an unset or unusable usage.
	Invalid Usage = 0x1000
	// OwnerSigning keys belong to the platform owner's certificate authority.
	OwnerSigning Usage = 0x1001
	// EndpointSigning keys sign the endpoint's key-encipherment certificate.
	EndpointSigning Usage = 0x1002
	// KeyEncipherment keys are used for key agreement and never sign.
	KeyEncipherment Usage = 0x1003
	// EndorsementSigning keys are unique per device and sign endpoint certificates.
	EndorsementSigning Usage = 0x1004
)

var names = map[Usage]string{
	RootSigning:        "root-signing",
	ChainSigning:       "chain-signing",
	Invalid:            "invalid",
	OwnerSigning:       "owner-signing",
	EndpointSigning:    "endpoint-signing",
	KeyEncipherment:    "key-encipherment",
	EndorsementSigning: "endorsement-signing",
}

// IsSigning reports whether keys with this usage produce signatures.
func (u Usage) IsSigning() bool {
	switch u {
	case RootSigning, ChainSigning, OwnerSigning, EndpointSigning, EndorsementSigning:
		return true
	default:
		return false
	}
}

// Valid reports whether u is one of the defined usages other than Invalid.
func (u Usage) Valid() bool {
	_, ok := names[u]
	return ok && u != Invalid
}

func (u Usage) String() string {
	if name, ok := names[u]; ok {
		return name
	}
	return fmt.Sprintf("usage(%#04x)", uint32(u))
}

// MarshalText implements encoding.TextMarshaler.
func (u Usage) MarshalText() ([]byte, error) {
	name, ok := names[u]
	if !ok {
		return nil, fmt.Errorf("unknown usage %#04x", uint32(u))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Usage) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Parse returns the usage with the given name.
func Parse(name string) (Usage, error) {
	for u, n := range names {
		if n == name {
			return u, nil
		}
	}
	return Invalid, fmt.Errorf("unknown usage %q, must be one of %v", name, Names())
}

// Names returns the names of all defined usages, sorted.
func Names() []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
