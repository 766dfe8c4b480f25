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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeMessage(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(filepath.Clean(path), []byte(contents), 0o600))
	return path
}

func TestRegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"generate", "describe", "sign", "verify", "version"} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, found.Name())
	}
}

func TestGenerateSignVerify(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "endpoint.pem")
	pub := filepath.Join(dir, "endpoint.pub")
	id := "0102030405060708090a0b0c0d0e0f10"

	out, err := run(t, "generate", "--family", "rsa", "--bits", "3072", "--hash", "sha384",
		"--usage", "endpoint-signing", "--id", id, "--private-key-out", priv, "--public-key-out", pub)
	require.NoError(t, err)
	assert.Contains(t, out, "descriptor: R3072 R384")
	assert.Contains(t, out, "id: "+id)

	msg := writeMessage(t, dir, "hello.txt", "hello")
	sigPath := filepath.Join(dir, "hello.sig")
	_, err = run(t, "sign", "--private-key", priv, "--public-key", pub, "--usage", "endpoint-signing",
		"--hash", "sha384", "--id", id, "--signature-out", sigPath, msg)
	require.NoError(t, err)

	out, err = run(t, "verify", "--public-key", pub, "--usage", "endpoint-signing", "--hash", "sha384",
		"--id", id, "--signature", sigPath, msg)
	require.NoError(t, err)
	assert.Contains(t, out, "Verified OK")

	// metadata mismatch is rejected before any cryptography
	_, err = run(t, "verify", "--public-key", pub, "--usage", "owner-signing", "--hash", "sha384",
		"--id", id, "--signature", sigPath, msg)
	assert.ErrorIs(t, err, keys.ErrInvalidInput)

	tampered := writeMessage(t, dir, "hellp.txt", "hellp")
	_, err = run(t, "verify", "--public-key", pub, "--usage", "endpoint-signing", "--hash", "sha384",
		"--id", id, "--signature", sigPath, tampered)
	require.Error(t, err)
	assert.NotErrorIs(t, err, keys.ErrInvalidInput)
	assert.ErrorContains(t, err, "verifying signature")
}

func TestSignWrongReference(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "a.pem")
	otherPub := filepath.Join(dir, "b.pub")
	_, err := run(t, "generate", "--usage", "owner-signing", "--private-key-out", priv)
	require.NoError(t, err)
	_, err = run(t, "generate", "--usage", "owner-signing", "--private-key-out", filepath.Join(dir, "b.pem"),
		"--public-key-out", otherPub)
	require.NoError(t, err)

	_, err = run(t, "sign", "--private-key", priv, "--public-key", otherPub, "--usage", "owner-signing",
		writeMessage(t, dir, "msg.txt", "msg"))
	assert.ErrorIs(t, err, keys.ErrInvalidData)
}

func TestEncryptedKeyAndJSONMessage(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "owner.pem")
	pub := filepath.Join(dir, "owner.pub")
	_, err := run(t, "generate", "--algorithm", "ecdsa-sha2-384-nistp384", "--usage", "owner-signing",
		"--password", "hunter2", "--private-key-out", priv, "--public-key-out", pub)
	require.NoError(t, err)

	signed := writeMessage(t, dir, "signed.json", `{"b": 1, "a": [true, null]}`)
	out, err := run(t, "sign", "--format", "json", "--private-key", priv, "--password", "hunter2",
		"--public-key", pub, "--usage", "owner-signing", signed)
	require.NoError(t, err)
	sigPath := filepath.Join(dir, "owner.sig")
	require.NoError(t, os.WriteFile(sigPath, []byte(out), 0o600))

	reordered := filepath.Join(dir, "reordered.json")
	require.NoError(t, os.WriteFile(reordered, []byte(`{"a":[true,null],"b":1}`), 0o600))
	out, err = run(t, "verify", "--format", "json", "--public-key", pub, "--usage", "owner-signing",
		"--signature", sigPath, reordered)
	require.NoError(t, err)
	assert.Contains(t, out, "Verified OK")

	_, err = run(t, "sign", "--private-key", priv, "--password", "wrong",
		"--public-key", pub, "--usage", "owner-signing", signed)
	assert.ErrorIs(t, err, keys.ErrInvalidData)
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "key.pem")
	pub := filepath.Join(dir, "key.pub")
	_, err := run(t, "generate", "--family", "rsa", "--bits", "2048", "--usage", "key-encipherment",
		"--private-key-out", priv, "--public-key-out", pub)
	require.NoError(t, err)

	out, err := run(t, "describe", "--public-key", pub, "--usage", "key-encipherment")
	require.NoError(t, err)
	assert.Contains(t, out, "family: RSA")
	assert.Contains(t, out, "hash: SHA-256")
	assert.Contains(t, out, "id: none")
	assert.Contains(t, out, "descriptor: unsupported")

	out, err = run(t, "describe", "--public-key", pub, "--usage", "root-signing")
	require.NoError(t, err)
	assert.Contains(t, out, "descriptor: R2048 R256")

	_, err = run(t, "generate", "--family", "ecdsa", "--curve", "p521", "--usage", "key-encipherment",
		"--private-key-out", priv, "--public-key-out", pub)
	require.NoError(t, err)
	out, err = run(t, "describe", "--public-key", pub, "--usage", "key-encipherment")
	require.NoError(t, err)
	assert.Contains(t, out, "descriptor: EP521 D512")
}

func TestAllowedAlgorithms(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "owner.pem")
	pub := filepath.Join(dir, "owner.pub")
	_, err := run(t, "generate", "--curve", "p521", "--usage", "owner-signing",
		"--private-key-out", priv, "--public-key-out", pub)
	require.NoError(t, err)

	out, err := run(t, "describe", "--public-key", pub, "--usage", "owner-signing",
		"--allowed-algorithms", "ecdsa-sha2-512-nistp521,ecdsa-sha2-256-nistp256")
	require.NoError(t, err)
	assert.Contains(t, out, "descriptor: EP521 E512")

	msg := writeMessage(t, dir, "msg.txt", "msg")
	_, err = run(t, "sign", "--private-key", priv, "--public-key", pub, "--usage", "owner-signing",
		"--allowed-algorithms", "ecdsa-sha2-256-nistp256", msg)
	assert.ErrorIs(t, err, keys.ErrUnsupportedKey)

	_, err = run(t, "verify", "--public-key", pub, "--usage", "owner-signing", "--hash", "sha256",
		"--allowed-algorithms", "ecdsa-sha2-512-nistp521", "--signature", filepath.Join(dir, "none.sig"), msg)
	assert.ErrorContains(t, err, "not one of --allowed-algorithms")
}

func TestUsageFromEnvironment(t *testing.T) {
	t.Setenv("CERTKEYS_USAGE", "chain-signing")
	out, err := run(t, "generate", "--curve", "p384", "--private-key-out", filepath.Join(t.TempDir(), "chain.pem"))
	require.NoError(t, err)
	assert.Contains(t, out, "usage: chain-signing")
	assert.Contains(t, out, "descriptor: EP384 E384")
}

func TestFlagErrors(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "key.pem")
	tests := []struct {
		name string
		args []string
		err  string
	}{
		{"missing usage", []string{"generate", "--private-key-out", out}, "must provide --usage"},
		{"unknown usage", []string{"generate", "--usage", "encryption", "--private-key-out", out}, "unknown usage"},
		{"missing output", []string{"generate", "--usage", "root-signing"}, "must provide --private-key-out"},
		{"bad hash", []string{"generate", "--usage", "root-signing", "--hash", "md5", "--private-key-out", out}, "invalid hash algorithm"},
		{"bad curve", []string{"generate", "--usage", "root-signing", "--curve", "p192", "--private-key-out", out}, "invalid curve"},
		{"bad family", []string{"generate", "--usage", "root-signing", "--family", "dsa", "--private-key-out", out}, "invalid key family"},
		{"bad id", []string{"generate", "--usage", "root-signing", "--id", "abcd", "--private-key-out", out}, "invalid --id"},
		{"bad algorithm", []string{"generate", "--usage", "root-signing", "--algorithm", "ed448", "--private-key-out", out}, "parsing signature algorithm flag"},
		{"bad log level", []string{"describe", "--log-level", "loud"}, "invalid log-level"},
		{"no reference", []string{"describe", "--usage", "root-signing"}, "must provide --public-key or --certificate"},
		{"missing public key", []string{"sign", "--usage", "root-signing", "--public-key", filepath.Join(dir, "missing.pub"), "msg"}, "no such file"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := run(t, test.args...)
			assert.ErrorContains(t, err, test.err)
		})
	}
}
