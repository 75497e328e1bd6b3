package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fluxdec/internal/report"
)

func newReportCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "report <report.json>",
		Short:       "Render a saved decode report",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			var rep report.Report
			if err := json.Unmarshal(data, &rep); err != nil {
				return fmt.Errorf("parse report: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd, &rep)
			}
			printDecodeReport(cmd, &rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Re-emit the report as JSON")
	return cmd
}
