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

package app

import (
	"crypto"
	"crypto/ecdsa"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sigstore/certkeys/internal/cli"
	"github.com/sigstore/certkeys/pkg/algorithmregistry"
	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.step.sm/crypto/pemutil"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a key pair",
		Long: `Generate an RSA or ECDSA key pair. The private key is written as PKCS#8 PEM,
optionally encrypted, and the public key as PKIX PEM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := generate()
			if err != nil {
				return err
			}
			if err := writePrivateKey(viper.GetString("private-key-out"), k, viper.GetString("password")); err != nil {
				return fmt.Errorf("writing private key: %w", err)
			}
			if out := viper.GetString("public-key-out"); out != "" {
				if err := cli.WritePublicKey(out, k.Public()); err != nil {
					return fmt.Errorf("writing public key: %w", err)
				}
			}
			slog.Info("generated key", "usage", k.Usage.String(), "hash", k.Hash.String())
			return describe(cmd.OutOrStdout(), k.Public())
		},
	}
	if err := cli.AddGenerateFlags(cmd); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	cmd.Flags().String("private-key-out", "", "path to write the PEM private key to")
	cmd.Flags().String("public-key-out", "", "optional path to write the PEM public key to")
	cmd.Flags().String("password", "", "optional password to encrypt the private key with")
	return cmd
}

func generate() (*keys.PrivateKey, error) {
	if viper.GetString("private-key-out") == "" {
		return nil, errors.New("must provide --private-key-out")
	}
	u, err := cli.Usage()
	if err != nil {
		return nil, err
	}
	opts, err := cli.KeyOptions()
	if err != nil {
		return nil, err
	}
	if name := viper.GetString("algorithm"); name != "" {
		algorithm, err := algorithmregistry.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		return algorithmregistry.GenerateKey(algorithm, u, opts...)
	}

	hash, err := cli.Hash()
	if err != nil {
		return nil, err
	}
	switch family := strings.ToLower(viper.GetString("family")); family {
	case "rsa":
		if hash == 0 {
			hash = crypto.SHA256
		}
		return keys.GenerateRSA(viper.GetInt("bits"), hash, u, opts...)
	case "ecdsa":
		curve, err := cli.Curve()
		if err != nil {
			return nil, err
		}
		if hash == 0 {
			if hash, err = keys.DefaultHash(&ecdsa.PublicKey{Curve: curve}); err != nil {
				return nil, err
			}
		}
		return keys.GenerateECDSA(curve, hash, u, opts...)
	default:
		return nil, fmt.Errorf("invalid key family for --family: %s", family)
	}
}

func writePrivateKey(path string, k *keys.PrivateKey, password string) error {
	opts := []pemutil.Options{pemutil.WithPKCS8(true)}
	if password != "" {
		opts = append(opts, pemutil.WithPassword([]byte(password)))
	}
	block, err := pemutil.Serialize(k.Key, opts...)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), pem.EncodeToMemory(block), 0o600)
}
