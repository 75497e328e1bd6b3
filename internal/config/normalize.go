package config

import "strings"

// normalize trims string fields and expands the path entries so the
// validated config only carries absolute paths.
func (c *Config) normalize() error {
	c.Decode.Scheme = strings.ToLower(strings.TrimSpace(c.Decode.Scheme))
	if c.Decode.Scheme == "" {
		c.Decode.Scheme = defaultScheme
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	for _, field := range []*string{
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.Paths.CatalogPath,
	} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}
