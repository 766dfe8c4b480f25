/*
Copyright 2025 The Sigstore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package signerverifier loads private keys from disk or from encrypted
// Tink keysets.
package signerverifier

import (
	"context"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"go.step.sm/crypto/pemutil"
)

// New returns a private key loaded from a Tink keyset or a private key file
// on disk. The key must match ref, which also supplies its usage, digest
// algorithm and identity.
func New(ctx context.Context, ref keys.PublicKeySource, opts ...Option) (*keys.PrivateKey, error) {
	sc := &signerVerifierConfig{}
	for _, o := range opts {
		o(sc)
	}
	switch {
	case sc.tinkKEKURI != "":
		return NewTinkPrivateKey(ctx, sc.tinkKEKURI, sc.tinkKeysetPath, ref)
	case sc.filePath != "":
		return NewFilePrivateKey(sc.filePath, sc.password, ref)
	default:
		return nil, fmt.Errorf("insufficient signing parameters provided, must configure one of file or Tink private keys")
	}
}

type signerVerifierConfig struct {
	filePath       string
	password       string
	tinkKEKURI     string
	tinkKeysetPath string
}

type Option func(*signerVerifierConfig)

// WithFile configures a file-based private key with an optional password.
func WithFile(filePath, password string) Option {
	return func(sc *signerVerifierConfig) {
		sc.filePath = filePath
		sc.password = password
	}
}

// WithTink configures a Tink keyset encrypted with a KMS key.
func WithTink(kekURI, keysetPath string) Option {
	return func(sc *signerVerifierConfig) {
		sc.tinkKEKURI = kekURI
		sc.tinkKeysetPath = keysetPath
	}
}

// NewFilePrivateKey reads a PEM or DER private key. PEM keys may be
// encrypted with password.
func NewFilePrivateKey(filePath, password string, ref keys.PublicKeySource) (*keys.PrivateKey, error) {
	contents, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, err
	}
	der, err := privateKeyDER(contents, password)
	if err != nil {
		return nil, err
	}
	k, err := keys.DecodePrivateKey(der, ref)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filePath, err)
	}
	slog.Debug("loaded private key", "path", filePath, "usage", k.Usage.String())
	return k, nil
}

func privateKeyDER(contents []byte, password string) ([]byte, error) {
	if block, _ := pem.Decode(contents); block == nil {
		return contents, nil
	}
	var opts []pemutil.Options
	if password != "" {
		opts = append(opts, pemutil.WithPassword([]byte(password)))
	}
	parsed, err := pemutil.Parse(contents, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing PEM private key: %v", keys.ErrInvalidData, err)
	}
	der, err := cryptoutils.MarshalPrivateKeyToDER(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", keys.ErrInvalidData, err)
	}
	return der, nil
}
