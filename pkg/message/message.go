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

// Package message provides the canonical encodings that signatures are
// computed over.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"google.golang.org/protobuf/proto"
)

// Encoder writes the exact byte sequence covered by a signature. Encoding
// must be deterministic: signing and verifying encode the same value
// independently.
type Encoder interface {
	Encode(w io.Writer) error
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(w io.Writer) error

// Encode calls f(w).
func (f EncoderFunc) Encode(w io.Writer) error {
	return f(w)
}

// Raw is a message whose canonical encoding is the bytes themselves.
type Raw []byte

// Encode writes the bytes unchanged.
func (r Raw) Encode(w io.Writer) error {
	_, err := w.Write(r)
	return err
}

// JSON returns an Encoder producing the RFC 8785 canonical JSON form of v.
func JSON(v any) Encoder {
	return EncoderFunc(func(w io.Writer) error {
		serialized, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling message: %w", err)
		}
		canonicalized, err := jsoncanonicalizer.Transform(serialized)
		if err != nil {
			return fmt.Errorf("canonicalizing message: %w", err)
		}
		_, err = w.Write(canonicalized)
		return err
	})
}

// Proto returns an Encoder producing the deterministic wire encoding of m.
func Proto(m proto.Message) Encoder {
	return EncoderFunc(func(w io.Writer) error {
		serialized, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling message: %w", err)
		}
		_, err = w.Write(serialized)
		return err
	})
}

// Bytes returns the canonical encoding of e.
func Bytes(e Encoder) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
