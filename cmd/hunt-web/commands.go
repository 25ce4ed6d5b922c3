package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"svw.info/hunt/internal/catalog"
	"svw.info/hunt/internal/domain"
)

func newCatalogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [file]",
		Short: "Validate a hunt definition and print its steps",
		Long: `Parses a hunt definition (the configured one, or the file given as
argument) and lists its steps in hunt order. Exits non-zero when the
definition is malformed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if len(args) == 1 {
				cfg.CatalogPath = args[0]
			}
			cat, err := openCatalog(cfg)
			if err != nil {
				return err
			}
			printHunt(cmd, cat)
			return nil
		},
	}
}

func printHunt(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()
	hunt := cat.Load()
	fmt.Fprintf(out, "%s (%d steps)\n", hunt.Title, len(hunt.Steps))
	for i, s := range hunt.Steps {
		detail := ""
		switch ch := s.Challenge.(type) {
		case domain.Riddle:
			detail = "riddle"
		case domain.Choice:
			detail = fmt.Sprintf("choice of %d", len(ch.Choices))
		}
		fmt.Fprintf(out, "%2d. %-12s %-12s %s\n", i+1, s.ID, detail, s.Title)
	}
}

// namespaceLister is implemented by backends that can enumerate sessions.
type namespaceLister interface {
	List(ctx context.Context) ([]string, error)
}

func newSessionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored player sessions and their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			uc, closeStorage, err := newService(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStorage()

			lister, ok := uc.Storage.(namespaceLister)
			if !ok {
				return fmt.Errorf("backend %q cannot list sessions", a.cfg.Backend)
			}
			ids, err := lister.List(ctx)
			if err != nil {
				return err
			}
			sort.Strings(ids)
			out := cmd.OutOrStdout()
			for _, id := range ids {
				snap, err := uc.Progress(ctx, id)
				if err != nil {
					return err
				}
				state := "in progress"
				if snap.IsHuntCompleted {
					state = "completed"
				}
				fmt.Fprintf(out, "%s  step %d/%d  done %d  %s\n", id, snap.CurrentIndex+1, snap.TotalSteps, len(snap.Done), state)
			}
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <session>",
		Short: "Wipe a player's progress and onboarding state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, closeStorage, err := newService(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeStorage()

			if _, err := uc.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s reset\n", args[0])
			return nil
		},
	}
}
