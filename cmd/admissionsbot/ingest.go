package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"admissionsbot/internal/config"
	"admissionsbot/internal/domain"
	"admissionsbot/internal/loader"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a data file and upsert it into the index",
	}
	cmd.AddCommand(
		newIngestSubCmd(opts, "programs <csv>", "Ingest the programs CSV", config.ProgramNamespace, loader.LoadProgramsFile),
		newIngestSubCmd(opts, "faqs <json|yaml>", "Ingest the FAQ file", config.FAQNamespace, loader.LoadFAQsFile),
	)
	return cmd
}

func newIngestSubCmd(opts *rootOptions, use, short, defaultNamespace string, load func(string) ([]domain.Document, error)) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %d documents\n", len(docs))

			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.service.IngestDocuments(cmd.Context(), namespace, docs); err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			fmt.Fprintf(out, "Documents upserted to index '%s' in namespace '%s'\n", a.cfg.Retrieval.Index, namespace)
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "namespace", defaultNamespace, "Target namespace")
	return cmd
}
