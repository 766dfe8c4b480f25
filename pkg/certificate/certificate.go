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

// Package certificate extracts keys and signatures from X.509 certificates
// so they can be checked with the keys package.
package certificate

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/sigstore/certkeys/pkg/message"
	"github.com/sigstore/certkeys/pkg/usage"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// ErrUnsupportedSignatureAlgorithm is returned for certificates signed with
// anything other than RSA-PSS or ECDSA over SHA-256, SHA-384 or SHA-512.
var ErrUnsupportedSignatureAlgorithm = errors.New("unsupported certificate signature algorithm")

type signatureAlgorithm struct {
	family x509.PublicKeyAlgorithm
	hash   crypto.Hash
}

var signatureAlgorithms = map[x509.SignatureAlgorithm]signatureAlgorithm{
	x509.SHA256WithRSAPSS: {x509.RSA, crypto.SHA256},
	x509.SHA384WithRSAPSS: {x509.RSA, crypto.SHA384},
	x509.SHA512WithRSAPSS: {x509.RSA, crypto.SHA512},
	x509.ECDSAWithSHA256:  {x509.ECDSA, crypto.SHA256},
	x509.ECDSAWithSHA384:  {x509.ECDSA, crypto.SHA384},
	x509.ECDSAWithSHA512:  {x509.ECDSA, crypto.SHA512},
}

// Certificate is an X.509 certificate whose key serves a declared usage.
type Certificate struct {
	cert  *x509.Certificate
	usage usage.Usage
	hash  crypto.Hash
	id    *keys.ID
}

var (
	_ keys.PublicKeySource = (*Certificate)(nil)
	_ message.Encoder      = (*Certificate)(nil)
)

// Option configures a Certificate.
type Option func(*Certificate)

// WithHash sets the digest algorithm of the certificate's key. Without it
// the conventional digest for the key is used.
func WithHash(hash crypto.Hash) Option {
	return func(c *Certificate) {
		c.hash = hash
	}
}

// WithID sets the identity of the certificate's key. Without it the
// leading 128 bits of the subject key identifier are used, when present.
func WithID(id keys.ID) Option {
	return func(c *Certificate) {
		c.id = &id
	}
}

// NewCertificate reads a DER certificate from r.
func NewCertificate(r io.Reader, u usage.Usage, opts ...Option) (*Certificate, error) {
	if r == nil {
		return nil, errors.New("certificate reader is nil")
	}
	der, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}
	slog.Debug("parsed certificate", "subject", cert.Subject.String(), "usage", u.String())
	return FromX509(cert, u, opts...), nil
}

// FromX509 wraps an already parsed certificate.
func FromX509(cert *x509.Certificate, u usage.Usage, opts ...Option) *Certificate {
	c := &Certificate{cert: cert, usage: u}
	for _, o := range opts {
		o(c)
	}
	return c
}

// X509 returns the underlying certificate.
func (c *Certificate) X509() *x509.Certificate {
	return c.cert
}

// Usage returns the usage of the certificate's key.
func (c *Certificate) Usage() usage.Usage {
	return c.usage
}

// ID returns the identity of the certificate's key, or nil.
func (c *Certificate) ID() *keys.ID {
	if c.id != nil {
		id := *c.id
		return &id
	}
	return keys.IDFromKeyIdentifier(c.cert.SubjectKeyId)
}

func (c *Certificate) String() string {
	encoded, err := cryptoutils.MarshalCertificateToPEM(c.cert)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// PublicKey returns the certificate's public key with the certificate's
// usage, digest algorithm and identity.
func (c *Certificate) PublicKey() (*keys.PublicKey, error) {
	hash := c.hash
	if hash == 0 {
		var err error
		hash, err = keys.DefaultHash(c.cert.PublicKey)
		if err != nil {
			return nil, err
		}
	}
	var opts []keys.Option
	if id := c.ID(); id != nil {
		opts = append(opts, keys.WithID(*id))
	}
	return keys.NewPublicKey(c.cert.PublicKey, hash, c.usage, opts...)
}

// Encode writes the DER TBSCertificate, the portion of the certificate
// covered by the issuer's signature.
func (c *Certificate) Encode(w io.Writer) error {
	_, err := w.Write(c.cert.RawTBSCertificate)
	return err
}

// Signature returns the issuer's signature embedded in the certificate. The
// issuer's usage is not recorded in X.509 and must be supplied.
func (c *Certificate) Signature(issuer usage.Usage) (*keys.Signature, error) {
	alg, ok := signatureAlgorithms[c.cert.SignatureAlgorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSignatureAlgorithm, c.cert.SignatureAlgorithm)
	}
	return &keys.Signature{
		ID:     keys.IDFromKeyIdentifier(c.cert.AuthorityKeyId),
		Bytes:  append([]byte(nil), c.cert.Signature...),
		Family: alg.family,
		Hash:   alg.hash,
		Usage:  issuer,
	}, nil
}

// CheckSignatureFrom verifies that issuer signed c.
func (c *Certificate) CheckSignatureFrom(issuer *Certificate) error {
	pub, err := issuer.PublicKey()
	if err != nil {
		return fmt.Errorf("getting issuer public key: %w", err)
	}
	sig, err := c.Signature(issuer.usage)
	if err != nil {
		return err
	}
	return pub.Verify(c, sig)
}
