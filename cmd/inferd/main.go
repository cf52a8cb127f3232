package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inferd/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "inferd:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := runOptions{
		configPath: os.Getenv(config.EnvConfig),
		envFile:    ".env",
	}
	cmd := &cobra.Command{
		Use:           "inferd",
		Short:         "gRPC text generation service",
		Long:          "inferd serves inference.Inferencer/GenerateText over gRPC, backed by an OpenAI-compatible API, a local llama.cpp model or a stub.",
		Args:          cobra.NoArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			opts.logWriter = cmd.ErrOrStderr()
			return run(ctx, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", opts.configPath, "Config file (.yaml, .json or .toml); defaults to $INFERD_CONFIG")
	cmd.Flags().StringVar(&opts.envFile, "env-file", opts.envFile, "dotenv file loaded before reading the environment (missing file is ignored)")
	return cmd
}
