package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hubenschmidt/go-docrag/vector"
	"github.com/spf13/cobra"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Extract, chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return errors.New("--name only applies to a single file")
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				var errs []error
				for _, path := range args {
					res, err := a.service.IngestFile(cmd.Context(), path, name)
					if err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
						cmd.PrintErrf("failed  %s: %v\n", path, err)
						continue
					}
					if opts.jsonOut {
						if err := printJSON(cmd.OutOrStdout(), res); err != nil {
							return err
						}
						continue
					}
					switch {
					case res.AlreadyExists:
						cmd.Printf("exists  %s (%s)\n", res.DocumentName, res.DocumentID)
					default:
						cmd.Printf("stored  %s (%s, %s)\n", res.DocumentName, res.DocumentID, plural(res.ChunksCreated, "chunk"))
					}
					if res.PersistWarning != "" {
						cmd.PrintErrf("warning: %s\n", res.PersistWarning)
					}
				}
				return errors.Join(errs...)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "document name to store (defaults to the file name)")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		topK int
		doc  string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the chunks most similar to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter vector.Filter
			if doc != "" {
				filter = vector.Filter{"document_id": doc}
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				res, err := a.service.Search(cmd.Context(), args[0], topK, filter)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), res)
				}
				if res.Count == 0 {
					cmd.Println("No results found.")
					return nil
				}
				for i, m := range res.Results {
					cmd.Printf("[%d] %.3f  %s #%d\n    %s\n", i+1, m.Similarity, m.Metadata.DocumentName, m.Metadata.ChunkIndex, truncate(m.Text, 160))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", vector.DefaultTopK, "number of results")
	cmd.Flags().StringVar(&doc, "document", "", "restrict results to one document id")
	return cmd
}

func newDocumentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs", "ls"},
		Short:   "List stored documents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				docs := a.service.Documents()
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), docs)
				}
				if len(docs) == 0 {
					cmd.Println("No documents stored.")
					return nil
				}
				for _, d := range docs {
					cmd.Printf("%s  %s  (%s)\n", d.DocumentID, d.DocumentName, plural(d.TotalChunks, "chunk"))
				}
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document_id>",
		Short: "Remove a document and all of its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				m, err := a.service.Delete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if m.Count == 0 {
					return fmt.Errorf("document %s not found", args[0])
				}
				cmd.Printf("deleted %s (%s)\n", args[0], plural(m.Count, "chunk"))
				if m.PersistErr != nil {
					cmd.PrintErrf("warning: %v\n", m.PersistErr)
				}
				return nil
			})
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app) error {
				st := a.service.Stats()
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), st)
				}
				cmd.Printf("collection:  %s\n", st.CollectionName)
				cmd.Printf("location:    %s\n", st.PersistLocation)
				cmd.Printf("documents:   %d\n", st.TotalDocuments)
				cmd.Printf("chunks:      %d\n", st.TotalChunks)
				cmd.Printf("dimension:   %d\n", st.Dimension)
				cmd.Printf("embeddings:  %s\n", a.service.EmbeddingModel())
				cmd.Printf("chunking:    %d/%d\n", a.cfg.Chunker.Size, a.cfg.Chunker.Overlap)
				return nil
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every document; pass --yes to confirm")
			}
			return withApp(cmd.Context(), opts, func(a *app) error {
				m, err := a.service.Reset(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Printf("reset %s (%s removed)\n", a.cfg.Store.Collection, plural(m.Count, "chunk"))
				if m.PersistErr != nil {
					return fmt.Errorf("reset not saved: %w", m.PersistErr)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}
