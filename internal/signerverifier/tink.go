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

package signerverifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	tinkUtils "github.com/sigstore/sigstore/pkg/signature/tink"
	"github.com/tink-crypto/tink-go-awskms/v2/integration/awskms"
	"github.com/tink-crypto/tink-go-gcpkms/v2/integration/gcpkms"
	"github.com/tink-crypto/tink-go/v2/core/registry"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/tink"
)

// NewTinkPrivateKey returns the private key held in an encrypted Tink
// keyset. Provide a path to the encrypted keyset and cloud KMS key URI for
// decryption.
func NewTinkPrivateKey(ctx context.Context, kekURI, keysetPath string, ref keys.PublicKeySource) (*keys.PrivateKey, error) {
	if kekURI == "" || keysetPath == "" {
		return nil, fmt.Errorf("key encryption key URI or keyset path unset")
	}
	kek, err := getKeyEncryptionKey(ctx, kekURI)
	if err != nil {
		return nil, err
	}
	return NewTinkPrivateKeyWithHandle(kek, keysetPath, ref)
}

// NewTinkPrivateKeyWithHandle returns the private key held in an encrypted
// Tink keyset, decrypted with kek. The keyset's digest algorithm must match
// the reference key's.
func NewTinkPrivateKeyWithHandle(kek tink.AEAD, keysetPath string, ref keys.PublicKeySource) (*keys.PrivateKey, error) {
	f, err := os.Open(filepath.Clean(keysetPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kh, err := keyset.Read(keyset.NewJSONReader(f), kek)
	if err != nil {
		return nil, err
	}
	signer, hash, err := tinkUtils.KeyHandleToSigner(kh)
	if err != nil {
		return nil, err
	}
	der, err := cryptoutils.MarshalPrivateKeyToDER(signer)
	if err != nil {
		return nil, err
	}
	k, err := keys.DecodePrivateKey(der, ref)
	if err != nil {
		return nil, err
	}
	if k.Hash != hash {
		return nil, fmt.Errorf("%w: keyset digest %v does not match reference digest %v", keys.ErrInvalidData, hash, k.Hash)
	}
	return k, nil
}

// getKeyEncryptionKey returns a Tink AEAD encryption key from KMS
// Supports GCP and AWS
func getKeyEncryptionKey(ctx context.Context, kmsKey string) (tink.AEAD, error) {
	switch {
	case strings.HasPrefix(kmsKey, "gcp-kms://"):
		gcpClient, err := gcpkms.NewClientWithOptions(ctx, kmsKey)
		if err != nil {
			return nil, err
		}
		registry.RegisterKMSClient(gcpClient)
		return gcpClient.GetAEAD(kmsKey)
	case strings.HasPrefix(kmsKey, "aws-kms://"):
		awsClient, err := awskms.NewClientWithOptions(kmsKey)
		if err != nil {
			return nil, err
		}
		registry.RegisterKMSClient(awsClient)
		return awsClient.GetAEAD(kmsKey)
	default:
		return nil, errors.New("unsupported KMS key type")
	}
}
