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

// Package note signs and verifies signed notes
// (https://github.com/C2SP/C2SP/blob/main/signed-note.md) with usage-bound keys.
package note

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/sigstore/certkeys/pkg/message"
	"golang.org/x/mod/sumdb/note"
)

const algUndef = 255

type noteSigner struct {
	name string
	hash uint32
	sign func(msg []byte) ([]byte, error)
}

// Name returns the server name associated with the key.
func (n *noteSigner) Name() string {
	return n.name
}

// KeyHash returns the key hash.
func (n *noteSigner) KeyHash() uint32 {
	return n.hash
}

// Sign returns a signature for the given message.
func (n *noteSigner) Sign(msg []byte) ([]byte, error) {
	return n.sign(msg)
}

type noteVerifier struct {
	name   string
	hash   uint32
	verify func(msg, sig []byte) bool
}

func (n *noteVerifier) Name() string {
	return n.name
}

func (n *noteVerifier) KeyHash() uint32 {
	return n.hash
}

func (n *noteVerifier) Verify(msg, sig []byte) bool {
	return n.verify(msg, sig)
}

// isValidName reports whether name is usable as a note origin, as defined in
// https://github.com/C2SP/C2SP/blob/main/tlog-checkpoint.md#note-text.
func isValidName(name string) bool {
	return name != "" && utf8.ValidString(name) && strings.IndexFunc(name, unicode.IsSpace) < 0 && !strings.Contains(name, "+")
}

// KeyHash returns the 4-byte note key ID for pub. The signature type covers
// the key family and usage, so the same key material registered for two
// usages has two key IDs.
func KeyHash(name string, pub *keys.PublicKey) (uint32, error) {
	marshaled, err := pub.Encode()
	if err != nil {
		return 0, fmt.Errorf("marshaling public key: %w", err)
	}
	hash := sha256.New()
	hash.Write([]byte(name))
	hash.Write([]byte("\n"))
	hash.Write(signatureType(pub))
	hash.Write(marshaled)
	return binary.BigEndian.Uint32(hash.Sum(nil)), nil
}

func signatureType(pub *keys.PublicKey) []byte {
	return append([]byte{algUndef}, fmt.Sprintf("PKIX-%s-%s", pub.Family(), pub.Usage)...)
}

// signedMessage is the note text prefixed with the key's signature type, so
// a note signature only verifies under the family and usage it was made for.
func signedMessage(pub *keys.PublicKey, msg []byte) message.Encoder {
	sigType := signatureType(pub)
	return message.EncoderFunc(func(w io.Writer) error {
		if _, err := w.Write(sigType); err != nil {
			return err
		}
		_, err := w.Write(msg)
		return err
	})
}

// NewNoteSigner returns a note.Signer that signs with k.
func NewNoteSigner(origin string, k *keys.PrivateKey) (note.Signer, error) {
	if !isValidName(origin) {
		return &noteSigner{}, fmt.Errorf("invalid name %s", origin)
	}
	pub := k.Public()
	keyID, err := KeyHash(origin, pub)
	if err != nil {
		return &noteSigner{}, err
	}
	sign := func(msg []byte) ([]byte, error) {
		sig, err := k.Sign(signedMessage(pub, msg))
		if err != nil {
			return nil, err
		}
		return sig.Bytes, nil
	}
	return &noteSigner{
		name: origin,
		hash: keyID,
		sign: sign,
	}, nil
}

// NewNoteVerifier returns a note.Verifier that checks signatures made by the
// private counterpart of k.
func NewNoteVerifier(origin string, k *keys.PublicKey) (note.Verifier, error) {
	if !isValidName(origin) {
		return &noteVerifier{}, fmt.Errorf("invalid name %s", origin)
	}
	keyID, err := KeyHash(origin, k)
	if err != nil {
		return &noteVerifier{}, err
	}
	verify := func(msg, sig []byte) bool {
		return k.Verify(signedMessage(k, msg), &keys.Signature{
			Bytes:  sig,
			Family: k.Family(),
			Hash:   k.Hash,
			Usage:  k.Usage,
		}) == nil
	}
	return &noteVerifier{
		name:   origin,
		hash:   keyID,
		verify: verify,
	}, nil
}
