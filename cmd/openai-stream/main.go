// Command openai-stream talks to the OpenAI API from the terminal and prints
// streamed responses as they arrive.
//
// Usage:
//
//	openai-stream chat "Tell me a joke"
//	openai-stream chat --markdown --model gpt-4o "Explain goroutines"
//	openai-stream --mock chat --model lorem-fast "anything"
//	openai-stream models
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/LevitatingBusinessMan/openai-go"
	"github.com/LevitatingBusinessMan/openai-go/lorem"
)

// globalOptions holds the flags shared by every subcommand.
type globalOptions struct {
	// ConfigPath is an optional YAML config file.
	ConfigPath string
	// BaseURL overrides the API base URL.
	BaseURL string
	// Mock serves requests from the offline lorem transport.
	Mock bool
	// Verbose enables debug logging on stderr.
	Verbose bool
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "openai-stream",
		Short:         "Stream completions from the OpenAI API",
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.BaseURL, "base-url", "", "Override the API base URL")
	flags.BoolVar(&opts.Mock, "mock", false, "Serve requests from the offline lorem mock")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log requests and stream progress to stderr")

	rootCmd.AddCommand(chatCommand(opts))
	rootCmd.AddCommand(completeCommand(opts))
	rootCmd.AddCommand(modelsCommand(opts))
	return rootCmd
}

// newClient builds a client from the global flags.
func newClient(cmd *cobra.Command, opts *globalOptions) (*openai.Client, error) {
	cfg, err := buildConfig(opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	client, err := openai.NewClientWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

func buildConfig(opts *globalOptions, stderr io.Writer) (openai.Config, error) {
	logger := newLogger(stderr, opts.Verbose)

	var cfg openai.Config
	var err error
	switch {
	case opts.Mock:
		cfg = openai.DefaultConfig("lorem")
		cfg.HTTPClient = &http.Client{Transport: lorem.NewTransport(logger)}
	case opts.ConfigPath != "":
		openai.LoadEnv()
		cfg, err = openai.LoadConfig(opts.ConfigPath)
	default:
		openai.LoadEnv()
		cfg, err = openai.ConfigFromEnv()
	}
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}

	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.Logger = logger
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
