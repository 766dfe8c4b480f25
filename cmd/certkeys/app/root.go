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
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/release-utils/version"
)

var rootCmd = NewRootCmd()

// NewRootCmd returns the certkeys command tree. Tests build a fresh tree per
// invocation.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certkeys",
		Short: "Generate, describe and use typed signing keys",
		Long: `certkeys manages RSA and ECDSA keys tagged with a usage, a digest
algorithm and an optional 128-bit identifier. Signatures only verify against
keys whose metadata matches their own.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: configure,
	}
	cmd.PersistentFlags().String("log-level", "info", "log level for the process. options are [debug, info, warn, error]")

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newDescribeCmd())
	cmd.AddCommand(newSignCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(version.Version())
	return cmd
}

// configure binds the running command's flags to viper, so each flag can
// also come from a CERTKEYS_ environment variable, and installs the logger.
func configure(cmd *cobra.Command, _ []string) error {
	viper.SetEnvPrefix("CERTKEYS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log-level specified; must be one of 'debug', 'info', 'error', or 'warn'")
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	return nil
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}
