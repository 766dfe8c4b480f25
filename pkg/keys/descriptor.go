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
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
)

// Descriptor returns the short algorithm summary shown for the key in
// certificate listings:
//
//	signing usage, RSA:        R<modulus bits> R<digest bits>
//	signing usage, ECDSA:      EP<curve degree> E<digest bits>
//	non-signing usage, ECDSA:  EP<curve degree> D<digest bits>
//
// Any other combination returns ErrUnsupportedDescriptor.
func (k *PublicKey) Descriptor() (string, error) {
	if err := checkHash(k.Hash); err != nil {
		return "", err
	}
	digestBits := k.Hash.Size() * 8
	signing := k.Usage.IsSigning()

	switch pub := k.Key.(type) {
	case *rsa.PublicKey:
		if signing {
			return fmt.Sprintf("R%d R%d", pub.Size()*8, digestBits), nil
		}
	case *ecdsa.PublicKey:
		degree := pub.Curve.Params().BitSize
		if signing {
			return fmt.Sprintf("EP%d E%d", degree, digestBits), nil
		}
		return fmt.Sprintf("EP%d D%d", degree, digestBits), nil
	}
	return "", fmt.Errorf("%w: %s key with %s usage", ErrUnsupportedDescriptor, k.Family(), k.Usage)
}
