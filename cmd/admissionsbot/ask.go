package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"admissionsbot/internal/shell"
)

type seedFlags struct {
	programs string
	faqs     string
}

func (s *seedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.programs, "load-programs", "", "Programs CSV to ingest before answering")
	cmd.Flags().StringVar(&s.faqs, "load-faqs", "", "FAQ file to ingest before answering")
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var question string
	var seed seedFlags
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer a single question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.preload(ctx, seed.programs, seed.faqs); err != nil {
				return err
			}
			credential := a.credential()
			if credential == "" {
				credential = promptCredential(cmd.InOrStdin(), cmd.ErrOrStderr())
			}
			if question != "" {
				return shell.Ask(ctx, cmd.OutOrStdout(), a.service, question, credential)
			}
			return shell.AskOnce(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.service, credential)
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to answer without prompting")
	seed.register(cmd)
	return cmd
}

// promptCredential reads the OpenAI key without echo when stdin is a terminal.
// Piped input is never consumed for the key.
func promptCredential(in io.Reader, out io.Writer) string {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return ""
	}
	fmt.Fprint(out, "OpenAI API key: ")
	key, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(key))
}
