package config

const (
	defaultOutputDir   = "~/.local/share/fluxdec/output"
	defaultLogDir      = "~/.local/share/fluxdec/logs"
	defaultCatalogPath = "~/.local/share/fluxdec/catalog.db"
	defaultScheme      = "auto"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"

	// defaultWeakBitThreshold and the CRC seeds are carried as
	// configuration rather than constants: they are empirically chosen
	// values, not derived ones.
	defaultWeakBitThreshold = 10
	defaultCRCSeedMFM       = 0xCDB4
	defaultCRCSeedFM        = 0xFFFF

	defaultTrackLengthTolerance = 0.05
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Decode: Decode{
			Scheme:           defaultScheme,
			WeakBitThreshold: defaultWeakBitThreshold,
			CRCSeedMFM:       defaultCRCSeedMFM,
			CRCSeedFM:        defaultCRCSeedFM,
		},
		Protection: Protection{
			TrackLengthTolerance: defaultTrackLengthTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
