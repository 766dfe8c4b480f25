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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sigstore/certkeys/internal/cli"
	"github.com/sigstore/certkeys/pkg/keys"
	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print a public key's metadata and format descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := cli.Reference()
			if err != nil {
				return err
			}
			return describe(cmd.OutOrStdout(), pub)
		},
	}
	if err := cli.AddReferenceFlags(cmd); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	return cmd
}

func describe(w io.Writer, pub *keys.PublicKey) error {
	descriptor, err := pub.Descriptor()
	switch {
	case errors.Is(err, keys.ErrUnsupportedDescriptor):
		descriptor = "unsupported"
	case err != nil:
		return err
	}
	id := "none"
	if pub.ID != nil {
		id = pub.ID.String()
	}
	_, err = fmt.Fprintf(w, "family: %s\nusage: %s\nhash: %s\nid: %s\ndescriptor: %s\n",
		pub.Family(), pub.Usage, pub.Hash, id, descriptor)
	return err
}
