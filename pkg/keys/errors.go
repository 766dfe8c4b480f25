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

// Package keys wraps RSA and ECDSA key material with the metadata needed to
// decide whether a signature applies to a key: its usage, digest algorithm
// and optional identity.
package keys

import "errors"

var (
	// ErrInvalidData is returned for malformed key or signature bytes, and
	// when a private key does not match its reference public key.
	ErrInvalidData = errors.New("invalid data")
	// ErrInvalidInput is returned when a signature's metadata does not match
	// the key it is verified against.
	ErrInvalidInput = errors.New("signature does not apply to key")
	// ErrUnsupportedDescriptor is returned when no algorithm descriptor is
	// defined for a key's family and usage.
	ErrUnsupportedDescriptor = errors.New("unsupported key family and usage combination")
	// ErrUnsupportedKey is returned for key families other than RSA and
	// ECDSA, and for unavailable digest algorithms.
	ErrUnsupportedKey = errors.New("unsupported key")
)
