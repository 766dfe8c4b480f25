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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sigstore/certkeys/internal/cli"
	"github.com/sigstore/certkeys/internal/signerverifier"
	"github.com/sigstore/certkeys/pkg/message"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <message file>",
		Short: "Sign a message",
		Long: `Sign a message with a private key. The private key must match the reference
public key, which also supplies the signature's usage, digest and identity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := cli.Reference()
			if err != nil {
				return err
			}
			opts, err := signerOptions()
			if err != nil {
				return err
			}
			k, err := signerverifier.New(cmd.Context(), ref, opts...)
			if err != nil {
				return fmt.Errorf("initializing key signer: %w", err)
			}
			msg, err := readMessage(args[0])
			if err != nil {
				return err
			}
			sig, err := k.Sign(msg)
			if err != nil {
				return fmt.Errorf("signing: %w", err)
			}
			out, err := json.MarshalIndent(sig, "", "  ")
			if err != nil {
				return err
			}
			out = append(out, '\n')
			if path := viper.GetString("signature-out"); path != "" {
				return os.WriteFile(filepath.Clean(path), out, 0o644) //nolint:gosec
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	if err := cli.AddReferenceFlags(cmd); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	addMessageFlags(cmd)
	cmd.Flags().String("private-key", "", "path to a PEM or DER private key")
	cmd.Flags().String("password", "", "password to decrypt the private key")
	cmd.Flags().String("tink-kek-uri", "", "encryption key for decrypting Tink keyset. Valid options are [aws-kms://keyname, gcp-kms://keyname]")
	cmd.Flags().String("tink-keyset-path", "", "path to encrypted Tink keyset")
	cmd.Flags().String("signature-out", "", "path to write the JSON signature to; defaults to stdout")
	cmd.MarkFlagsMutuallyExclusive("private-key", "tink-kek-uri")
	return cmd
}

func signerOptions() ([]signerverifier.Option, error) {
	switch {
	case viper.GetString("private-key") != "":
		return []signerverifier.Option{signerverifier.WithFile(viper.GetString("private-key"), viper.GetString("password"))}, nil
	case viper.GetString("tink-kek-uri") != "":
		return []signerverifier.Option{signerverifier.WithTink(viper.GetString("tink-kek-uri"), viper.GetString("tink-keyset-path"))}, nil
	default:
		return nil, errors.New("must provide a signer using --private-key or --tink-kek-uri")
	}
}

func addMessageFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "raw", "message encoding, one of [raw, json]; json messages are canonicalized per RFC 8785 first")
}

func readMessage(path string) (message.Encoder, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	switch format := viper.GetString("format"); format {
	case "raw":
		return message.Raw(contents), nil
	case "json":
		if !json.Valid(contents) {
			return nil, fmt.Errorf("%s is not valid JSON", path)
		}
		return message.JSON(json.RawMessage(contents)), nil
	default:
		return nil, fmt.Errorf("invalid message format for --format: %s", format)
	}
}

