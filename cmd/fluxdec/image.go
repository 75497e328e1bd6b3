package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fluxdec/internal/container"
	"fluxdec/internal/flux"
)

// loadCaptures reads a flux image and returns its captures in track
// order. SCP images may carry a whole disk; a raw stream is always a
// single track.
func loadCaptures(path string) ([]*flux.Capture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flux image: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".scp":
		img, err := container.ReadSCP(file)
		if err != nil {
			return nil, err
		}
		captures := make([]*flux.Capture, 0, len(img.Tracks()))
		for _, track := range img.Tracks() {
			capt, _ := img.Capture(track)
			captures = append(captures, capt)
		}
		if len(captures) == 0 {
			return nil, fmt.Errorf("flux image %s contains no tracks", path)
		}
		return captures, nil
	case ".flxr", ".raw":
		capt, err := container.ReadRaw(file)
		if err != nil {
			return nil, err
		}
		return []*flux.Capture{capt}, nil
	}
	return nil, fmt.Errorf("unsupported flux image extension %q (expected .scp, .flxr or .raw)", filepath.Ext(path))
}
