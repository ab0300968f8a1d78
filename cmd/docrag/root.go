package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hubenschmidt/go-docrag/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "docrag",
		Short: "Document ingestion and retrieval for grounded question answering",
		Long: `docrag chunks uploaded documents, embeds the chunks and answers
questions from the most similar chunks. Run "docrag serve" for the HTTP API
or use the subcommands to manage the collection directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "YAML config file (optional)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newSearchCmd(opts),
		newDocumentsCmd(opts),
		newDeleteCmd(opts),
		newStatsCmd(opts),
		newResetCmd(opts),
	)
	return root
}

// withApp loads configuration, wires the app, runs fn and closes the app.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app) error) error {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
