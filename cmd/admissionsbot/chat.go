package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"admissionsbot/internal/shell"
	"admissionsbot/internal/tui"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var seed seedFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.preload(ctx, seed.programs, seed.faqs); err != nil {
				return err
			}
			session := shell.NewSession(a.service, a.credential())
			m := tui.New(ctx, session)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	seed.register(cmd)
	return cmd
}
