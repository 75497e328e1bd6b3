// Package container reads and writes flux image files.
//
// Two formats are supported: SuperCard Pro (.scp) images, the de facto
// interchange format for flux captures, and a minimal raw interval
// stream used for synthesized test material. Both produce flux.Capture
// values ready for the decode pipeline; neither interprets the flux
// beyond splitting it into revolutions at the stored index marks.
package container
