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

package algorithmregistry

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/sigstore/certkeys/pkg/usage"
	v1 "github.com/sigstore/protobuf-specs/gen/pb-go/common/v1"
	"github.com/sigstore/sigstore/pkg/signature"
	"golang.org/x/exp/slices"
)

var (
	// AllowedKeyAlgorithms is the default set of algorithms keys may be
	// generated for and accepted with.
	AllowedKeyAlgorithms = []v1.PublicKeyDetails{
		v1.PublicKeyDetails_PKIX_RSA_PSS_2048_SHA256,
		v1.PublicKeyDetails_PKIX_RSA_PSS_3072_SHA256,
		v1.PublicKeyDetails_PKIX_RSA_PSS_4096_SHA256,
		v1.PublicKeyDetails_PKIX_ECDSA_P256_SHA_256,
		v1.PublicKeyDetails_PKIX_ECDSA_P384_SHA_384,
		v1.PublicKeyDetails_PKIX_ECDSA_P521_SHA_512,
	}

	// hashStrength orders the supported digests from weakest to strongest.
	hashStrength = []crypto.Hash{crypto.SHA256, crypto.SHA384, crypto.SHA512}
)

// AlgorithmRegistry accepts a list of algorithms as strings, parses and formats them into a registry.
func AlgorithmRegistry(algorithmOptions []string) (*signature.AlgorithmRegistryConfig, error) {
	var algorithms []v1.PublicKeyDetails
	if algorithmOptions == nil {
		algorithms = AllowedKeyAlgorithms
	} else {
		for _, a := range algorithmOptions {
			algorithm, err := ParseAlgorithm(a)
			if err != nil {
				return nil, err
			}
			algorithms = append(algorithms, algorithm)
		}
	}
	algorithmRegistry, err := signature.NewAlgorithmRegistryConfig(algorithms)
	if err != nil {
		return nil, fmt.Errorf("getting algorithm registry: %w", err)
	}
	return algorithmRegistry, nil
}

// ParseAlgorithm parses a sigstore signature algorithm flag name, such as
// "ecdsa-sha2-384-nistp384".
func ParseAlgorithm(name string) (v1.PublicKeyDetails, error) {
	algorithm, err := signature.ParseSignatureAlgorithmFlag(name)
	if err != nil {
		return v1.PublicKeyDetails_PUBLIC_KEY_DETAILS_UNSPECIFIED, fmt.Errorf("parsing signature algorithm flag: %w", err)
	}
	return algorithm, nil
}

// AlgorithmNames returns the flag names of the given algorithms.
func AlgorithmNames(algorithms []v1.PublicKeyDetails) ([]string, error) {
	names := make([]string, len(algorithms))
	for i, a := range algorithms {
		name, err := signature.FormatSignatureAlgorithmFlag(a)
		if err != nil {
			return nil, fmt.Errorf("formatting signature algorithm flag: %w", err)
		}
		names[i] = name
	}
	return names, nil
}

// CheckKeyAlgorithm checks that the key size or curve and the digest
// algorithm of pub are allowed given an algorithm registry.
func CheckKeyAlgorithm(pub *keys.PublicKey, algorithmRegistry *signature.AlgorithmRegistryConfig) (bool, error) {
	isPermitted, err := algorithmRegistry.IsAlgorithmPermitted(pub.Key, pub.Hash)
	if err != nil {
		return false, fmt.Errorf("checking if algorithm is permitted: %w", err)
	}
	return isPermitted, nil
}

// GenerateKey generates a key pair with the key type, size and digest
// algorithm of a sigstore algorithm identifier.
func GenerateKey(algorithm v1.PublicKeyDetails, u usage.Usage, opts ...keys.Option) (*keys.PrivateKey, error) {
	details, err := signature.GetAlgorithmDetails(algorithm)
	if err != nil {
		return nil, fmt.Errorf("getting algorithm details: %w", err)
	}
	switch details.GetKeyType() {
	case signature.RSA:
		size, err := details.GetRSAKeySize()
		if err != nil {
			return nil, err
		}
		return keys.GenerateRSA(int(size), details.GetHashType(), u, opts...)
	case signature.ECDSA:
		curve, err := details.GetECDSACurve()
		if err != nil {
			return nil, err
		}
		return keys.GenerateECDSA(*curve, details.GetHashType(), u, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", keys.ErrUnsupportedKey, algorithm)
	}
}

// PermittedHashAlgorithms returns the digest algorithms the registry allows
// for pub, weakest first.
func PermittedHashAlgorithms(pub crypto.PublicKey, algorithmRegistry *signature.AlgorithmRegistryConfig) ([]crypto.Hash, error) {
	var hashes []crypto.Hash
	for _, hash := range hashStrength {
		isPermitted, err := algorithmRegistry.IsAlgorithmPermitted(pub, hash)
		if err != nil {
			return nil, fmt.Errorf("checking if algorithm is permitted: %w", err)
		}
		if isPermitted {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}

// SelectKeyHash returns the strongest digest algorithm the registry allows
// for pub.
func SelectKeyHash(pub crypto.PublicKey, algorithmRegistry *signature.AlgorithmRegistryConfig) (crypto.Hash, error) {
	hashes, err := PermittedHashAlgorithms(pub, algorithmRegistry)
	if err != nil {
		return crypto.Hash(0), err
	}
	if len(hashes) == 0 {
		return crypto.Hash(0), fmt.Errorf("%w: no allowed algorithm for %T", keys.ErrUnsupportedKey, pub)
	}
	return SelectHashAlgorithm(hashes)
}

// SelectHashAlgorithm returns the strongest known digest algorithm in algs.
func SelectHashAlgorithm(algs []crypto.Hash) (crypto.Hash, error) {
	if len(algs) == 0 {
		return crypto.Hash(0), errors.New("hash algorithm slice is empty")
	}
	for i := len(hashStrength) - 1; i >= 0; i-- {
		if slices.Contains(algs, hashStrength[i]) {
			return hashStrength[i], nil
		}
	}
	return crypto.Hash(0), errors.New("no known hash algorithms provided")
}
