package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fluxdec/internal/classify"
	"fluxdec/internal/container"
	"fluxdec/internal/encoding"
	"fluxdec/internal/flux"
)

// synthSampleClock divides the 40 MHz SCP base clock evenly, so
// synthesized captures round-trip through both container formats.
const synthSampleClock = 40_000_000

func newSynthCommand(ctx *commandContext) *cobra.Command {
	var (
		format      string
		cylinder    int
		head        int
		revolutions int
		sectorCount int
		output      string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic flux image for one track",
		Long: `Synth encodes a deterministic sector payload with the chosen
scheme, renders it to flux at the nominal cell width and writes the
result as an SCP image or raw interval stream. The output exercises the
full decode pipeline and is meant for testing and calibration.`,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			capt, diskType, err := synthesizeTrack(format, cylinder, head, sectorCount, revolutions)
			if err != nil {
				return err
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer file.Close()

			switch strings.ToLower(filepath.Ext(output)) {
			case ".scp":
				err = container.WriteSCP(file, diskType, []*flux.Capture{capt})
			case ".flxr", ".raw":
				err = container.WriteRaw(file, capt)
			default:
				err = fmt.Errorf("unsupported output extension %q (expected .scp, .flxr or .raw)", filepath.Ext(output))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s track %d.%d (%d revolutions) to %s\n",
				format, cylinder, head, revolutions, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "amiga", "Track format: amiga, ibm, fm, c64 or apple")
	cmd.Flags().IntVar(&cylinder, "cylinder", 0, "Physical cylinder")
	cmd.Flags().IntVar(&head, "head", 0, "Physical head")
	cmd.Flags().IntVarP(&revolutions, "revolutions", "r", 3, "Revolutions to write")
	cmd.Flags().IntVarP(&sectorCount, "sectors", "n", 0, "Sector count (0 = format default)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output path (.scp, .flxr or .raw)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func synthesizeTrack(format string, cylinder, head, sectorCount, revolutions int) (*flux.Capture, byte, error) {
	if revolutions < 1 {
		return nil, 0, fmt.Errorf("revolution count %d must be at least 1", revolutions)
	}

	var (
		bits     []uint8
		cellNS   float64
		diskType byte
		err      error
	)
	switch strings.ToLower(format) {
	case "amiga":
		if sectorCount == 0 {
			sectorCount = 11
		}
		bits, err = encoding.BuildAmigaTrack(cylinder, head, synthPayloads(cylinder, head, sectorCount, 512))
		cellNS, diskType = 2000, 0x04
	case "ibm":
		if sectorCount == 0 {
			sectorCount = 9
		}
		bits, err = encoding.BuildIBMMFMTrack(cylinder, head, 2, synthPayloads(cylinder, head, sectorCount, 512))
		cellNS, diskType = 2000, 0x40
	case "fm":
		if sectorCount == 0 {
			sectorCount = 10
		}
		bits, err = encoding.BuildFMTrack(cylinder, head, 1, synthPayloads(cylinder, head, sectorCount, 256))
		cellNS, diskType = 4000, 0x40
	case "c64":
		zone, zerr := encoding.ZoneForTrack(cylinder)
		if zerr != nil {
			return nil, 0, zerr
		}
		if sectorCount == 0 {
			sectorCount = zone.Sectors
		}
		bits, err = encoding.BuildC64Track(cylinder, 0x30, 0x31, synthPayloads(cylinder, head, sectorCount, 256))
		preset, perr := classify.PresetC64GCR(zone.Zone)
		if perr != nil {
			return nil, 0, perr
		}
		cellNS, diskType = preset.CellNS, 0x00
	case "apple":
		if sectorCount == 0 {
			sectorCount = 16
		}
		bits, err = encoding.BuildAppleTrack(254, cylinder, synthPayloads(cylinder, head, sectorCount, 256))
		cellNS, diskType = 4000, 0x20
	default:
		return nil, 0, fmt.Errorf("unknown track format %q", format)
	}
	if err != nil {
		return nil, 0, err
	}

	capt := encoding.SynthesizeCapture(cylinder, head, bits, cellNS, synthSampleClock, revolutions)
	return capt, diskType, nil
}

// synthPayloads fills each sector with a pattern derived from its
// address, so a decoded image can be checked byte for byte.
func synthPayloads(cylinder, head, count, size int) [][]byte {
	sectors := make([][]byte, count)
	for s := range sectors {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(cylinder*31 + head*17 + s*7 + i)
		}
		sectors[s] = payload
	}
	return sectors
}
