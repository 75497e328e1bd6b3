package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	CatalogPath string `toml:"catalog_path"`
}

// Decode contains the per-track decode tunables.
type Decode struct {
	// Scheme is the default encoding scheme: auto, fm, mfm, gcr-c64
	// or gcr-apple.
	Scheme string `toml:"scheme"`
	// MaxRevolutions caps how many revolutions feed fusion. Zero uses
	// every captured revolution.
	MaxRevolutions int  `toml:"max_revolutions"`
	HighDensity    bool `toml:"high_density"`
	// Workers is the number of tracks decoded in parallel. Zero means
	// one worker per CPU.
	Workers int `toml:"workers"`
	// WeakBitThreshold is the weak-position count above which a track
	// counts as carrying weak bits. The default of 10 is an
	// empirically chosen value tuned on Amiga and 1541 media.
	WeakBitThreshold int `toml:"weak_bit_threshold"`
	// CRCSeedMFM is the CRC-16 preset for MFM fields, the register
	// state after the three A1 sync bytes. CRCSeedFM is the FM preset.
	CRCSeedMFM int `toml:"crc_seed_mfm"`
	CRCSeedFM  int `toml:"crc_seed_fm"`
}

// Classifier optionally overrides the per-scheme classifier preset.
// It applies only when CellNS is set.
type Classifier struct {
	CellNS       float64 `toml:"cell_ns"`
	Classes      []int   `toml:"classes"`
	NoiseFloorNS float64 `toml:"noise_floor_ns"`
	AdaptRate    float64 `toml:"adapt_rate"`
	WindowRadius int     `toml:"window_radius"`
}

// Protection contains protection-analysis tunables.
type Protection struct {
	// TrackLengthTolerance is the fractional rotation deviation above
	// which a track is flagged long or short.
	TrackLengthTolerance float64 `toml:"track_length_tolerance"`
}

// Catalog configures the decode-run catalog database.
type Catalog struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for fluxdec.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Decode     Decode     `toml:"decode"`
	Classifier Classifier `toml:"classifier"`
	Protection Protection `toml:"protection"`
	Catalog    Catalog    `toml:"catalog"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default
// configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fluxdec/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a file was actually found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fluxdec.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories tool runs depend on.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.Catalog.Enabled && c.Paths.CatalogPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.CatalogPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other
// packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified
// location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
