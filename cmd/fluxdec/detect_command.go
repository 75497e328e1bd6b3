package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fluxdec/internal/encoding"
	"fluxdec/internal/flux"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "detect <flux-image>",
		Short:       "Report the encoding scheme and spindle speed per track",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			captures, err := loadCaptures(args[0])
			if err != nil {
				return err
			}

			type detection struct {
				Cylinder    int     `json:"cylinder"`
				Head        int     `json:"head"`
				Scheme      string  `json:"scheme"`
				Speed       string  `json:"speed"`
				RPM         float64 `json:"rpm"`
				Revolutions int     `json:"revolutions"`
				Error       string  `json:"error,omitempty"`
			}

			detections := make([]detection, 0, len(captures))
			for _, capt := range captures {
				d := detection{Cylinder: capt.Cylinder, Head: capt.Head}
				norm, err := flux.Normalize(capt, false)
				if err != nil {
					d.Error = err.Error()
					detections = append(detections, d)
					continue
				}
				scheme := encoding.DetectScheme(norm.PrimaryIntervals(), capt.SampleClockHz, 2000)
				d.Scheme = string(scheme)
				d.Speed = string(norm.Speed)
				d.RPM = norm.RPM
				d.Revolutions = len(norm.Revolutions)
				detections = append(detections, d)
			}

			if jsonOutput {
				return writeJSON(cmd, detections)
			}

			rows := make([][]string, 0, len(detections))
			for _, d := range detections {
				if d.Error != "" {
					rows = append(rows, []string{
						fmt.Sprintf("%d.%d", d.Cylinder, d.Head),
						"-", "-", "-", "error: " + d.Error,
					})
					continue
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d.%d", d.Cylinder, d.Head),
					d.Scheme,
					fmt.Sprintf("%.1f", d.RPM),
					fmt.Sprintf("%d", d.Revolutions),
					d.Speed,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Track", "Scheme", "RPM", "Revs", "Speed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit detections as JSON")
	return cmd
}
