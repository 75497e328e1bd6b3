package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fluxdec/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect recorded decode runs",
	}
	catalogCmd.AddCommand(newRunsListCommand(ctx))
	catalogCmd.AddCommand(newRunsShowCommand(ctx))
	return catalogCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent decode runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(store *catalog.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No decode runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					finished := "running"
					if !run.FinishedAt.IsZero() {
						finished = run.FinishedAt.Local().Format(time.DateTime)
					}
					rows = append(rows, []string{
						run.ID,
						run.Source,
						run.Scheme,
						fmt.Sprintf("%d", run.Tracks),
						fmt.Sprintf("%d/%d/%d", run.GoodSectors, run.WeakSectors, run.BadSectors),
						finished,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Source", "Scheme", "Tracks", "G/W/B", "Finished"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum runs to list (0 = default)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit runs as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-track outcome of one decode run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(store *catalog.Store) error {
				tracks, err := store.RunTracks(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, tracks)
				}
				if len(tracks) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No tracks recorded for run %s\n", args[0])
					return nil
				}

				rows := make([][]string, 0, len(tracks))
				for _, t := range tracks {
					if t.Error != "" {
						rows = append(rows, []string{
							fmt.Sprintf("%d.%d", t.Cylinder, t.Head),
							"-", "-", "-", "-", "error: " + t.Error,
						})
						continue
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d.%d", t.Cylinder, t.Head),
						t.Scheme,
						fmt.Sprintf("%.1f", t.RPM),
						fmt.Sprintf("%d", t.RevolutionsUsed),
						fmt.Sprintf("%d/%d/%d", t.Good, t.Weak, t.Bad),
						t.ProtectionScheme,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Track", "Scheme", "RPM", "Revs", "G/W/B", "Protection"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit tracks as JSON")
	return cmd
}
