package config

import (
	"errors"
	"fmt"

	"fluxdec/internal/encoding"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDecode(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateProtection(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDecode() error {
	if _, err := encoding.ParseScheme(c.Decode.Scheme); err != nil {
		return fmt.Errorf("decode.scheme: %w", err)
	}
	if c.Decode.MaxRevolutions < 0 {
		return errors.New("decode.max_revolutions must not be negative")
	}
	if c.Decode.Workers < 0 {
		return errors.New("decode.workers must not be negative")
	}
	if c.Decode.WeakBitThreshold < 0 {
		return errors.New("decode.weak_bit_threshold must not be negative")
	}
	if c.Decode.CRCSeedMFM < 0 || c.Decode.CRCSeedMFM > 0xFFFF {
		return errors.New("decode.crc_seed_mfm must be a 16-bit value")
	}
	if c.Decode.CRCSeedFM < 0 || c.Decode.CRCSeedFM > 0xFFFF {
		return errors.New("decode.crc_seed_fm must be a 16-bit value")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	cl := c.Classifier
	if cl.CellNS == 0 && len(cl.Classes) == 0 {
		return nil // preset-driven
	}
	if cl.CellNS <= 0 {
		return errors.New("classifier.cell_ns must be positive when a classifier override is set")
	}
	if len(cl.Classes) == 0 {
		return errors.New("classifier.classes must list at least one cell-width class")
	}
	prev := 0
	for _, class := range cl.Classes {
		if class <= prev {
			return errors.New("classifier.classes must be positive and strictly increasing")
		}
		prev = class
	}
	if cl.NoiseFloorNS < 0 {
		return errors.New("classifier.noise_floor_ns must not be negative")
	}
	if cl.WindowRadius < 0 {
		return errors.New("classifier.window_radius must not be negative")
	}
	if cl.WindowRadius == 0 && (cl.AdaptRate <= 0 || cl.AdaptRate > 1) {
		return errors.New("classifier.adapt_rate must be in (0, 1] when no window is set")
	}
	return nil
}

func (c *Config) validateProtection() error {
	tol := c.Protection.TrackLengthTolerance
	if tol <= 0 || tol > 0.5 {
		return errors.New("protection.track_length_tolerance must be in (0, 0.5]")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
