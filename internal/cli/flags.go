//
// Copyright 2025 The Sigstore Authors.
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

package cli

import (
	"bytes"
	"crypto"
	"crypto/elliptic"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sigstore/certkeys/pkg/algorithmregistry"
	"github.com/sigstore/certkeys/pkg/certificate"
	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/sigstore/certkeys/pkg/usage"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var hashAlgMap = map[string]crypto.Hash{
	"sha256": crypto.SHA256,
	"sha384": crypto.SHA384,
	"sha512": crypto.SHA512,
}

var curveMap = map[string]elliptic.Curve{
	"p256": elliptic.P256(),
	"p384": elliptic.P384(),
	"p521": elliptic.P521(),
}

// AddMetadataFlags adds the flags describing a key's usage, digest
// algorithm and identity.
func AddMetadataFlags(cmd *cobra.Command) {
	cmd.Flags().String("usage", "", fmt.Sprintf("key usage, one of [%s]", strings.Join(usage.Names(), ", ")))
	cmd.Flags().String("hash", "", "digest algorithm, one of [sha256, sha384, sha512]; defaults to the key's natural digest")
	cmd.Flags().String("id", "", "optional 128-bit key identifier in hex")
}

// AddReferenceFlags adds the flags locating the reference public key, given
// either directly or through a certificate, and the algorithms it may use.
func AddReferenceFlags(cmd *cobra.Command) error {
	cmd.Flags().String("public-key", "", "path to a PEM or DER public key")
	cmd.Flags().String("certificate", "", "path to a PEM or DER certificate holding the public key")
	cmd.MarkFlagsMutuallyExclusive("public-key", "certificate")
	AddMetadataFlags(cmd)

	keyAlgorithmTypes, err := defaultKeyAlgorithms()
	if err != nil {
		return err
	}
	keyAlgorithmHelp := fmt.Sprintf("optional list of signing algorithms the reference key must match; when set, also picks the default --hash (allowed %s)", strings.Join(keyAlgorithmTypes, ", "))
	cmd.Flags().StringSlice("allowed-algorithms", nil, keyAlgorithmHelp)
	return nil
}

// AddGenerateFlags adds the key generation flags shared by commands that
// create keys.
func AddGenerateFlags(cmd *cobra.Command) error {
	keyAlgorithmTypes, err := defaultKeyAlgorithms()
	if err != nil {
		return err
	}
	keyAlgorithmHelp := fmt.Sprintf("signing algorithm to generate a key for (allowed %s)", strings.Join(keyAlgorithmTypes, ", "))
	cmd.Flags().String("algorithm", "", keyAlgorithmHelp)
	cmd.Flags().String("family", "ecdsa", "key family when --algorithm is unset, one of [rsa, ecdsa]")
	cmd.Flags().Int("bits", 3072, "RSA modulus size in bits")
	cmd.Flags().String("curve", "p256", "ECDSA curve, one of [p256, p384, p521]")
	cmd.MarkFlagsMutuallyExclusive("algorithm", "family")
	AddMetadataFlags(cmd)
	return nil
}

func defaultKeyAlgorithms() ([]string, error) {
	keyAlgorithmTypes, err := algorithmregistry.AlgorithmNames(algorithmregistry.AllowedKeyAlgorithms)
	if err != nil {
		return nil, err
	}
	sort.Strings(keyAlgorithmTypes)
	return keyAlgorithmTypes, nil
}

// Usage parses --usage. A usage is always required.
func Usage() (usage.Usage, error) {
	name := viper.GetString("usage")
	if name == "" {
		return usage.Invalid, fmt.Errorf("must provide --usage")
	}
	return usage.Parse(name)
}

// Hash parses --hash, returning zero when unset.
func Hash() (crypto.Hash, error) {
	name := viper.GetString("hash")
	if name == "" {
		return 0, nil
	}
	hashAlg, ok := hashAlgMap[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("invalid hash algorithm for --hash: %s", name)
	}
	return hashAlg, nil
}

// Curve parses --curve.
func Curve() (elliptic.Curve, error) {
	name := viper.GetString("curve")
	curve, ok := curveMap[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("invalid curve for --curve: %s", name)
	}
	return curve, nil
}

// KeyOptions returns the key options carrying --id, if set.
func KeyOptions() ([]keys.Option, error) {
	id := viper.GetString("id")
	if id == "" {
		return nil, nil
	}
	parsed, err := keys.ParseID(id)
	if err != nil {
		return nil, fmt.Errorf("invalid --id: %w", err)
	}
	return []keys.Option{keys.WithID(parsed)}, nil
}

// Reference loads the reference public key named by --public-key or
// --certificate, with the metadata given by --usage, --hash and --id. When
// --allowed-algorithms is set the key must match one of them.
func Reference() (*keys.PublicKey, error) {
	u, err := Usage()
	if err != nil {
		return nil, err
	}
	hash, err := Hash()
	if err != nil {
		return nil, err
	}
	opts, err := KeyOptions()
	if err != nil {
		return nil, err
	}
	algorithmRegistry, err := allowedAlgorithms()
	if err != nil {
		return nil, err
	}

	var (
		key  crypto.PublicKey
		cert *certificate.Certificate
	)
	switch {
	case viper.GetString("certificate") != "":
		der, err := readDER(viper.GetString("certificate"))
		if err != nil {
			return nil, err
		}
		if cert, err = certificate.NewCertificate(bytes.NewReader(der), u); err != nil {
			return nil, err
		}
		key = cert.X509().PublicKey
	case viper.GetString("public-key") != "":
		der, err := readDER(viper.GetString("public-key"))
		if err != nil {
			return nil, err
		}
		parsed, err := keys.DecodePublicKey(der, crypto.SHA256, u)
		if err != nil {
			return nil, err
		}
		key = parsed.Key
	default:
		return nil, fmt.Errorf("must provide --public-key or --certificate")
	}

	if hash == 0 {
		if algorithmRegistry != nil {
			hash, err = algorithmregistry.SelectKeyHash(key, algorithmRegistry)
		} else {
			hash, err = keys.DefaultHash(key)
		}
		if err != nil {
			return nil, err
		}
	}

	var pub *keys.PublicKey
	if cert != nil {
		certOpts := []certificate.Option{certificate.WithHash(hash)}
		if id := viper.GetString("id"); id != "" {
			parsed, err := keys.ParseID(id)
			if err != nil {
				return nil, fmt.Errorf("invalid --id: %w", err)
			}
			certOpts = append(certOpts, certificate.WithID(parsed))
		}
		pub, err = certificate.FromX509(cert.X509(), u, certOpts...).PublicKey()
	} else {
		pub, err = keys.NewPublicKey(key, hash, u, opts...)
	}
	if err != nil {
		return nil, err
	}

	if algorithmRegistry != nil {
		isPermitted, err := algorithmregistry.CheckKeyAlgorithm(pub, algorithmRegistry)
		if err != nil {
			return nil, err
		}
		if !isPermitted {
			return nil, fmt.Errorf("%s key with digest %v is not one of --allowed-algorithms", pub.Family(), pub.Hash)
		}
	}
	return pub, nil
}

// allowedAlgorithms returns the registry named by --allowed-algorithms, or
// nil when the flag is unset.
func allowedAlgorithms() (*signature.AlgorithmRegistryConfig, error) {
	names := viper.GetStringSlice("allowed-algorithms")
	if len(names) == 0 {
		return nil, nil
	}
	return algorithmregistry.AlgorithmRegistry(names)
}

// readDER reads a file holding either a single PEM block or raw DER.
func readDER(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(contents); block != nil {
		return block.Bytes, nil
	}
	return contents, nil
}

// WritePublicKey writes pub to path as PEM.
func WritePublicKey(path string, pub *keys.PublicKey) error {
	pemBytes, err := cryptoutils.MarshalPublicKeyToPEM(pub.Key)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), pemBytes, 0o644) //nolint:gosec
}
