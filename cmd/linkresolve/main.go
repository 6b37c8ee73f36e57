// Command linkresolve resolves a share link from the terminal and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"Linkgrab/internal/core/linkcache"
	"Linkgrab/internal/core/resolver"
	"Linkgrab/internal/core/ytdlp"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	logLevel string
	timeout  time.Duration
	ytdlp    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "linkresolve",
		Short:         "Resolve social-media and marketplace share links into media URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: parseLevel(opts.logLevel),
			})))
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.ytdlp, "ytdlp", ytdlp.DefaultConfig().Binary, "metadata extraction binary (empty disables it)")

	root.AddCommand(newResolveCmd(opts), newServicesCmd(opts))
	return root
}

func newResolveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <link-or-text>",
		Short: "Resolve the first link found in the arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDispatcher(cmd.Context(), opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			resolved, err := d.Resolve(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("%s (status %d): %w", resolver.PublicMessage(err), resolver.StatusCode(err), err)
			}
			return writeJSON(cmd.OutOrStdout(), resolved)
		},
	}
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 45*time.Second, "overall resolve timeout")
	return cmd
}

func newServicesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the supported services in dispatch order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDispatcher(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for i, s := range d.Services() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (%s)\n", i+1, s, s.DisplayName())
			}
			return nil
		},
	}
}

func newDispatcher(ctx context.Context, opts *options) (*resolver.Dispatcher, error) {
	cfg := resolver.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := linkcache.New(ctx, linkcache.DefaultConfig())
	if err != nil {
		return nil, err
	}

	var extractor resolver.MetadataExtractor
	if opts.ytdlp != "" {
		ycfg := ytdlp.ConfigFromEnv()
		ycfg.Binary = opts.ytdlp
		client, err := ytdlp.NewClient(ycfg)
		if err != nil {
			return nil, err
		}
		extractor = client
	}

	return resolver.NewDispatcher(cache, resolver.DefaultStrategies(cfg, resolver.NewHTTPClient(cfg.HTTPTimeout), extractor))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelWarn
	}
	return level
}
