package track

import (
	"fmt"
	"log/slog"
	"sort"

	"fluxdec/internal/bitstream"
	"fluxdec/internal/classify"
	"fluxdec/internal/encoding"
	"fluxdec/internal/fields"
	"fluxdec/internal/flux"
	"fluxdec/internal/fuse"
	"fluxdec/internal/protect"
)

// detectCellNS is the nominal bit-cell width assumed when bucketing
// intervals for scheme detection.
const detectCellNS = 2000

// Config tunes one track decode. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Classifier overrides the per-scheme preset when non-nil.
	Classifier *classify.Config
	Fusion     fuse.Config
	Protection protect.Config
	// MaxRevolutions caps how many revolutions are decoded and fused.
	// Zero means all available.
	MaxRevolutions int
	// HighDensity doubles the preset cell widths for HD media. Ignored
	// when Classifier is set.
	HighDensity bool
	// CRCSeedFM and CRCSeedMFM override the IBM framing CRC presets.
	// Zero keeps the standard seeds.
	CRCSeedFM  uint16
	CRCSeedMFM uint16
	// Logger receives per-stage diagnostics. Nil discards them.
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Fusion:     fuse.DefaultConfig(),
		Protection: protect.DefaultConfig(),
	}
}

// Sector is one decoded sector, immutable once returned. Data carries
// best-effort bytes even when DataOK is false.
type Sector struct {
	Cylinder   int
	Head       int
	Sector     int
	Size       int
	Data       []byte
	HeaderOK   bool
	DataOK     bool
	Weak       bool
	Deleted    bool
	Confidence float64
}

// Result is the outcome of one track decode.
type Result struct {
	Sectors     []Sector
	Protections []protect.Marker
	// ProtectionScheme names a matched protection scheme, or is empty.
	ProtectionScheme string
	// Scheme is the encoding actually used, with auto resolved.
	Scheme encoding.Scheme
	Speed  flux.SpindleSpeed
	RPM    float64
	// RotationNS is the measured rotation period of the primary
	// revolution; NominalRotationNS the standard period it was judged
	// against.
	RotationNS        float64
	NominalRotationNS float64
	RevolutionsUsed   uint8
}

// revolution holds one revolution's independently decoded artifacts.
type revolution struct {
	bits    []uint8
	pairing *fields.Pairing
}

// Decode runs the full pipeline over one (cylinder, head) capture.
// scheme may be SchemeAuto. A malformed capture is the only fatal
// condition; checksum failures and unreadable fields surface as flags on
// the returned sectors.
func Decode(capture *flux.Capture, scheme encoding.Scheme, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	norm, err := flux.Normalize(capture, false)
	if err != nil {
		return nil, err
	}

	if scheme == encoding.SchemeAuto {
		scheme = encoding.DetectScheme(norm.PrimaryIntervals(), capture.SampleClockHz, detectCellNS)
		log.Debug("scheme detected",
			"cylinder", capture.Cylinder,
			"head", capture.Head,
			"scheme", scheme)
	}

	clsCfg, err := classifierConfig(cfg, scheme, capture.Cylinder)
	if err != nil {
		return nil, err
	}
	dec, err := encoding.ForScheme(scheme, encoding.Options{
		PhysicalTrack: capture.Cylinder,
		CRCSeedFM:     cfg.CRCSeedFM,
		CRCSeedMFM:    cfg.CRCSeedMFM,
	})
	if err != nil {
		return nil, err
	}

	revCount := len(norm.Revolutions)
	if cfg.MaxRevolutions > 0 && revCount > cfg.MaxRevolutions {
		revCount = cfg.MaxRevolutions
	}

	revs := make([]revolution, 0, revCount)
	for r := 0; r < revCount; r++ {
		rev, err := decodeRevolution(dec, clsCfg, norm.Intervals(r), capture)
		if err != nil {
			return nil, fmt.Errorf("revolution %d: %w", r, err)
		}
		revs = append(revs, rev)
	}

	// The 1541 varies bitrate by logical track. The first decode pass
	// assumes the zone implied by the physical position; a verified
	// header naming a track in a different zone triggers a re-decode
	// at that zone's cell width.
	if scheme == encoding.SchemeGCRC64 && cfg.Classifier == nil {
		if zoneCfg, ok := rezonedConfig(revs, capture.Cylinder); ok {
			log.Debug("reclassifying at header-derived speed zone",
				"cylinder", capture.Cylinder)
			clsCfg = zoneCfg
			for r := 0; r < revCount; r++ {
				rev, err := decodeRevolution(dec, clsCfg, norm.Intervals(r), capture)
				if err != nil {
					return nil, fmt.Errorf("revolution %d: %w", r, err)
				}
				revs[r] = rev
			}
		}
	}

	revPairs := make([][]fields.Pair, revCount)
	revBits := make([][]uint8, revCount)
	for r, rev := range revs {
		revPairs[r] = rev.pairing.Pairs
		revBits[r] = rev.bits
	}
	fused := fuse.Fuse(cfg.Fusion, revPairs, revBits)

	measured := norm.Revolutions[norm.Primary].RotationNS
	res := &Result{
		Scheme:            scheme,
		Speed:             norm.Speed,
		RPM:               norm.RPM,
		RotationNS:        measured,
		NominalRotationNS: flux.StandardRotationNS(measured),
		RevolutionsUsed:   uint8(revCount),
	}
	for _, c := range fused.Choices {
		res.Sectors = append(res.Sectors, buildSector(scheme, c, fused))
	}
	sort.SliceStable(res.Sectors, func(i, j int) bool {
		return res.Sectors[i].Sector < res.Sectors[j].Sector
	})

	primary := norm.Primary
	if primary >= revCount {
		primary = 0
	}
	analysis := protect.Analyze(cfg.Protection, observations(norm, revs[primary], fused, scheme))
	res.Protections = analysis.Markers
	res.ProtectionScheme = analysis.Scheme

	log.Debug("track decoded",
		"cylinder", capture.Cylinder,
		"head", capture.Head,
		"sectors", len(res.Sectors),
		"revolutions", revCount,
		"protections", len(res.Protections))
	return res, nil
}

func classifierConfig(cfg Config, scheme encoding.Scheme, physicalTrack int) (classify.Config, error) {
	if cfg.Classifier != nil {
		return *cfg.Classifier, nil
	}
	var c classify.Config
	switch scheme {
	case encoding.SchemeFM:
		c = classify.PresetFM()
	case encoding.SchemeMFM:
		c = classify.PresetIBMDD()
	case encoding.SchemeGCRApple:
		c = classify.PresetAppleGCR()
	case encoding.SchemeGCRC64:
		zone, err := encoding.ZoneForTrack(physicalTrack)
		if err != nil {
			return classify.Config{}, err
		}
		return classify.PresetC64GCR(zone.Zone)
	default:
		return classify.Config{}, fmt.Errorf("no classifier preset for scheme %q", scheme)
	}
	c.HighDensity = cfg.HighDensity
	return c, nil
}

func decodeRevolution(dec encoding.Decoder, clsCfg classify.Config, intervals []flux.Interval, capture *flux.Capture) (revolution, error) {
	cls, _, err := classify.Run(clsCfg, intervals, capture.SampleClockHz)
	if err != nil {
		return revolution{}, err
	}
	pairing, err := fields.Parse(dec, bitstream.New(cls.Bits), capture.Cylinder)
	if err != nil {
		return revolution{}, err
	}
	return revolution{bits: cls.Bits, pairing: pairing}, nil
}

// rezonedConfig looks for a verified header whose logical track sits in
// a different speed zone than the physical position implied and returns
// that zone's classifier preset.
func rezonedConfig(revs []revolution, physicalTrack int) (classify.Config, bool) {
	physZone, err := encoding.ZoneForTrack(physicalTrack)
	if err != nil {
		return classify.Config{}, false
	}
	for _, rev := range revs {
		for _, p := range rev.pairing.Pairs {
			if !p.Address.ChecksumOK {
				continue
			}
			zone, err := encoding.ZoneForTrack(p.Address.Cylinder)
			if err != nil || zone.Zone == physZone.Zone {
				return classify.Config{}, false
			}
			cfg, err := classify.PresetC64GCR(zone.Zone)
			if err != nil {
				return classify.Config{}, false
			}
			return cfg, true
		}
	}
	return classify.Config{}, false
}

// maxSectorScore is the fusion score of a fully verified sector.
const maxSectorScore = 40

func buildSector(scheme encoding.Scheme, c fuse.Choice, fused *fuse.Result) Sector {
	s := Sector{
		Cylinder: c.Pair.Address.Cylinder,
		Head:     c.Pair.Address.Head,
		Sector:   c.Sector,
		Size:     c.Pair.Address.ByteSize,
		HeaderOK: c.Pair.Address.ChecksumOK,
	}
	if d := c.Pair.Data; d != nil {
		s.Data = d.Bytes
		s.DataOK = d.ChecksumOK
		s.Deleted = d.Deleted
		if s.Size == 0 {
			s.Size = len(d.Bytes)
		}
		if fused.HasWeakBits {
			s.Weak = sectorHasWeakBits(scheme, c.Pair, fused.WeakMarks)
		}
	}
	s.Confidence = float64(c.Score) / maxSectorScore
	if s.Weak && s.Confidence > 0.1 {
		s.Confidence -= 0.1
	}
	return s
}

// channelBitsPerByte estimates how many bit cells one decoded byte spans,
// used to map weak-bit positions onto sector extents.
func channelBitsPerByte(scheme encoding.Scheme) int {
	switch scheme {
	case encoding.SchemeGCRC64:
		return 10
	case encoding.SchemeGCRApple:
		return 11
	default:
		return 16
	}
}

func sectorHasWeakBits(scheme encoding.Scheme, p fields.Pair, marks []fuse.WeakMark) bool {
	start := p.Address.BitPos
	end := p.Data.BitPos + len(p.Data.Bytes)*channelBitsPerByte(scheme)
	for _, m := range marks {
		if m.BitPos >= start && m.BitPos < end {
			return true
		}
	}
	return false
}

func observations(norm *flux.Normalized, primary revolution, fused *fuse.Result, scheme encoding.Scheme) protect.Observations {
	obs := protect.Observations{
		WeakMarks:   fused.WeakMarks,
		HasWeakBits: fused.HasWeakBits,
		OrphanData:  len(primary.pairing.Orphans),
	}

	measured := norm.Revolutions[norm.Primary].RotationNS
	obs.RotationNS = int64(measured)
	obs.NominalRotationNS = int64(flux.StandardRotationNS(measured))

	for _, p := range primary.pairing.Pairs {
		obs.SectorIDs = append(obs.SectorIDs, p.Address.Sector)
	}

	switch scheme {
	case encoding.SchemeGCRC64:
		if zone, err := encoding.ZoneForTrack(norm.Capture.Cylinder); err == nil {
			obs.ExpectedSectors = zone.Sectors
		}
	case encoding.SchemeGCRApple:
		obs.ExpectedSectors = 16
	case encoding.SchemeMFM:
		// Amiga tracks carry eleven combined frames per side.
		if primary.pairing.Marks[encoding.MarkSector] > 0 {
			obs.ExpectedSectors = 11
		}
	}
	return obs
}
