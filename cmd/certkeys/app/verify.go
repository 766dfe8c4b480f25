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
	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <message file>",
		Short: "Verify a JSON signature over a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := cli.Reference()
			if err != nil {
				return err
			}
			sig, err := readSignature(viper.GetString("signature"))
			if err != nil {
				return err
			}
			msg, err := readMessage(args[0])
			if err != nil {
				return err
			}
			if err := pub.Verify(msg, sig); err != nil {
				if errors.Is(err, keys.ErrInvalidInput) {
					return fmt.Errorf("signature does not apply to this key: %w", err)
				}
				return fmt.Errorf("verifying signature: %w", err)
			}
			slog.Debug("verified signature", "usage", sig.Usage.String())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Verified OK")
			return err
		},
	}
	if err := cli.AddReferenceFlags(cmd); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	addMessageFlags(cmd)
	cmd.Flags().String("signature", "", "path to the JSON signature")
	return cmd
}

func readSignature(path string) (*keys.Signature, error) {
	if path == "" {
		return nil, errors.New("must provide --signature")
	}
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	sig := &keys.Signature{}
	if err := json.Unmarshal(contents, sig); err != nil {
		return nil, fmt.Errorf("reading signature %s: %w", path, err)
	}
	return sig, nil
}
