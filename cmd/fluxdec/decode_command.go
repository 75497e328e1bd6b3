package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fluxdec/internal/catalog"
	"fluxdec/internal/classify"
	"fluxdec/internal/config"
	"fluxdec/internal/encoding"
	"fluxdec/internal/flux"
	"fluxdec/internal/fuse"
	"fluxdec/internal/logging"
	"fluxdec/internal/protect"
	"fluxdec/internal/report"
	"fluxdec/internal/track"
)

const (
	ansiBlue  = "\x1b[34m"
	ansiReset = "\x1b[0m"
)

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var (
		schemeFlag  string
		revolutions int
		highDensity bool
		workers     int
		jsonOutput  bool
		reportPath  string
		imageOut    string
		skipCatalog bool
	)

	cmd := &cobra.Command{
		Use:   "decode <flux-image>",
		Short: "Decode a flux image into sectors",
		Long: `Decode runs the full pipeline over every track in a flux image:
revolution splitting, adaptive cell classification, encoding-specific
field parsing, multi-revolution fusion and protection analysis.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logger = logging.WithComponent(logger, "decoder")

			trackCfg, scheme, err := trackConfig(cfg, logger)
			if err != nil {
				return err
			}
			if schemeFlag != "" {
				scheme, err = encoding.ParseScheme(schemeFlag)
				if err != nil {
					return err
				}
			}
			if revolutions > 0 {
				trackCfg.MaxRevolutions = revolutions
			}
			if cmd.Flags().Changed("high-density") {
				trackCfg.HighDensity = highDensity
				if trackCfg.Classifier != nil {
					trackCfg.Classifier.HighDensity = highDensity
				}
			}

			captures, err := loadCaptures(args[0])
			if err != nil {
				return err
			}

			poolSize := cfg.Decode.Workers
			if workers > 0 {
				poolSize = workers
			}
			results := decodeAll(captures, scheme, trackCfg, poolSize)

			rep := report.New(args[0])
			for _, r := range results {
				if r.err != nil {
					logger.Warn("track failed",
						"cylinder", r.cylinder, "head", r.head, "error", r.err)
					rep.AddFailure(r.cylinder, r.head, r.err)
					continue
				}
				rep.AddTrack(r.cylinder, r.head, r.result)
			}
			rep.Finalize()

			if cfg.Catalog.Enabled && !skipCatalog {
				if err := recordRun(cmd, ctx, cfg, rep); err != nil {
					if errors.Is(err, catalog.ErrLocked) {
						logger.Warn("catalog locked by another process, skipping run record")
					} else {
						return err
					}
				}
			}

			if reportPath != "" {
				if err := writeReportFile(reportPath, rep); err != nil {
					return err
				}
			}
			if imageOut != "" {
				if err := writeSectorImage(imageOut, results); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd, rep)
			}
			printDecodeReport(cmd, rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&schemeFlag, "scheme", "s", "", "Encoding scheme: auto, fm, mfm, gcr-c64 or gcr-apple")
	cmd.Flags().IntVarP(&revolutions, "revolutions", "r", 0, "Cap on revolutions fed to fusion (0 = all captured)")
	cmd.Flags().BoolVar(&highDensity, "high-density", false, "Treat the capture as high-density media")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Tracks decoded in parallel (0 = configured value)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full report as JSON")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the JSON report to this path")
	cmd.Flags().StringVarP(&imageOut, "out", "o", "", "Write decoded sector payloads to this path")
	cmd.Flags().BoolVar(&skipCatalog, "no-catalog", false, "Skip recording the run in the catalog")
	return cmd
}

// trackConfig maps the file configuration onto the pipeline tunables.
func trackConfig(cfg *config.Config, logger *slog.Logger) (track.Config, encoding.Scheme, error) {
	tc := track.DefaultConfig()
	scheme, err := encoding.ParseScheme(cfg.Decode.Scheme)
	if err != nil {
		return track.Config{}, scheme, err
	}
	tc.MaxRevolutions = cfg.Decode.MaxRevolutions
	tc.HighDensity = cfg.Decode.HighDensity
	tc.CRCSeedFM = uint16(cfg.Decode.CRCSeedFM)
	tc.CRCSeedMFM = uint16(cfg.Decode.CRCSeedMFM)
	tc.Fusion = fuse.Config{WeakBitThreshold: cfg.Decode.WeakBitThreshold}
	tc.Protection = protect.Config{TrackLengthTolerance: cfg.Protection.TrackLengthTolerance}
	if cfg.Classifier.CellNS > 0 {
		tc.Classifier = &classify.Config{
			CellNS:       cfg.Classifier.CellNS,
			Classes:      cfg.Classifier.Classes,
			NoiseFloorNS: cfg.Classifier.NoiseFloorNS,
			AdaptRate:    cfg.Classifier.AdaptRate,
			WindowRadius: cfg.Classifier.WindowRadius,
			HighDensity:  cfg.Decode.HighDensity,
		}
	}
	tc.Logger = logger
	return tc, scheme, nil
}

type trackOutcome struct {
	cylinder int
	head     int
	result   *track.Result
	err      error
}

// decodeAll runs the pipeline over every capture with a bounded worker
// pool. Results come back sorted by cylinder then head.
func decodeAll(captures []*flux.Capture, scheme encoding.Scheme, cfg track.Config, workers int) []trackOutcome {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(captures) {
		workers = len(captures)
	}

	jobs := make(chan *flux.Capture)
	out := make([]trackOutcome, 0, len(captures))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for capt := range jobs {
				res, err := track.Decode(capt, scheme, cfg)
				mu.Lock()
				out = append(out, trackOutcome{
					cylinder: capt.Cylinder,
					head:     capt.Head,
					result:   res,
					err:      err,
				})
				mu.Unlock()
			}
		}()
	}
	for _, capt := range captures {
		jobs <- capt
	}
	close(jobs)
	wg.Wait()

	sort.Slice(out, func(i, j int) bool {
		if out[i].cylinder != out[j].cylinder {
			return out[i].cylinder < out[j].cylinder
		}
		return out[i].head < out[j].head
	})
	return out
}

func recordRun(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, rep *report.Report) error {
	return ctx.withCatalog(func(store *catalog.Store) error {
		runCtx := cmd.Context()
		run, err := store.BeginRun(runCtx, rep.Source, cfg.Decode.Scheme)
		if err != nil {
			return err
		}
		for _, rec := range rep.Tracks {
			if err := store.RecordTrack(runCtx, run.ID, rec); err != nil {
				return err
			}
		}
		if err := store.FinishRun(runCtx, run.ID, rep.Summary); err != nil {
			return err
		}
		rep.RunID = run.ID
		return nil
	})
}

func writeReportFile(path string, rep *report.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()
	return rep.WriteJSON(file)
}

// writeSectorImage concatenates the decoded sector payloads in cylinder,
// head, sector order. Sectors that never decoded are simply absent.
func writeSectorImage(path string, results []trackOutcome) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sector image: %w", err)
	}
	defer file.Close()

	for _, r := range results {
		if r.err != nil {
			continue
		}
		sectors := append([]track.Sector(nil), r.result.Sectors...)
		sort.Slice(sectors, func(i, j int) bool { return sectors[i].Sector < sectors[j].Sector })
		for _, s := range sectors {
			if _, err := file.Write(s.Data); err != nil {
				return fmt.Errorf("write sector image: %w", err)
			}
		}
	}
	return nil
}

func printDecodeReport(cmd *cobra.Command, rep *report.Report) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(rep.Tracks))
	for _, t := range rep.Tracks {
		if t.Error != "" {
			rows = append(rows, []string{
				fmt.Sprintf("%d.%d", t.Cylinder, t.Head),
				"-", "-", "-", "-", "-", "error: " + t.Error,
			})
			continue
		}
		notes := t.ProtectionScheme
		if notes == "" && len(t.Protections) > 0 {
			kinds := make([]string, 0, len(t.Protections))
			for _, p := range t.Protections {
				kinds = append(kinds, p.Kind)
			}
			notes = strings.Join(kinds, ", ")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d.%d", t.Cylinder, t.Head),
			t.Scheme,
			fmt.Sprintf("%.1f", t.RPM),
			fmt.Sprintf("%d", t.RevolutionsUsed),
			fmt.Sprintf("%d/%d/%d", t.Good, t.Weak, t.Bad),
			fmt.Sprintf("%.1f%%", t.TimingConsistencyPct),
			notes,
		})
	}

	title := fmt.Sprintf("%s: %d tracks, %d good / %d weak / %d bad sectors",
		rep.Source, rep.Summary.Tracks,
		rep.Summary.GoodSectors, rep.Summary.WeakSectors, rep.Summary.BadSectors)
	if isTerminal(out) {
		title = ansiBlue + title + ansiReset
	}
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, renderTable(
		[]string{"Track", "Scheme", "RPM", "Revs", "G/W/B", "Timing", "Notes"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	if rep.Summary.FailedTracks > 0 {
		fmt.Fprintf(out, "%d track(s) failed to decode\n", rep.Summary.FailedTracks)
	}
	if rep.RunID != "" {
		fmt.Fprintf(out, "Run recorded as %s\n", rep.RunID)
	}
}
