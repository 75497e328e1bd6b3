package fuse

import (
	"sort"

	"fluxdec/internal/fields"
)

// Candidate scoring weights. A verified data field dominates everything
// else; the rest break near-ties between marginal reads.
const (
	scoreDataOK   = 20
	scoreHeaderOK = 10
	scoreNotWeak  = 5
	scoreHasData  = 5
)

// Config carries the fusion tunables.
type Config struct {
	// WeakBitThreshold is the number of disagreeing bit positions above
	// which a track counts as carrying weak bits. Below it,
	// disagreement is treated as read noise. Empirically chosen
	// default; not validated for exotic media.
	WeakBitThreshold int
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{WeakBitThreshold: 10}
}

// Choice is the selected reconstruction for one logical sector.
type Choice struct {
	Sector     int
	Revolution int
	Score      int
	Pair       fields.Pair
}

// WeakMark flags one bit position that did not read identically across
// revolutions. Variance is the proportion of revolutions disagreeing
// with the majority value.
type WeakMark struct {
	BitPos   int
	Variance float64
}

// Result is the fused view of one track.
type Result struct {
	Choices     []Choice
	WeakMarks   []WeakMark
	HasWeakBits bool
	Revolutions int
}

// Fuse selects the best per-sector candidates across revolutions and
// runs weak-bit comparison over the classified streams. revPairs and
// revBits are indexed by revolution; both are left unmodified.
func Fuse(cfg Config, revPairs [][]fields.Pair, revBits [][]uint8) *Result {
	if cfg.WeakBitThreshold <= 0 {
		cfg.WeakBitThreshold = DefaultConfig().WeakBitThreshold
	}
	res := &Result{Revolutions: len(revPairs)}

	bySector := map[int][]Choice{}
	for rev, pairs := range revPairs {
		for _, p := range pairs {
			c := Choice{Sector: p.Address.Sector, Revolution: rev, Score: scorePair(p), Pair: p}
			bySector[c.Sector] = append(bySector[c.Sector], c)
		}
	}
	for sector, candidates := range bySector {
		best := candidates[0]
		for _, c := range candidates[1:] {
			// Strict comparison keeps the earliest revolution on ties.
			if c.Score > best.Score {
				best = c
			}
		}
		best.Sector = sector
		res.Choices = append(res.Choices, best)
	}
	sort.Slice(res.Choices, func(i, j int) bool { return res.Choices[i].Sector < res.Choices[j].Sector })

	res.WeakMarks = CompareBits(revBits)
	res.HasWeakBits = len(res.WeakMarks) > cfg.WeakBitThreshold
	return res
}

func scorePair(p fields.Pair) int {
	score := 0
	if p.Data != nil && p.Data.ChecksumOK {
		score += scoreDataOK
	}
	if p.Address.ChecksumOK {
		score += scoreHeaderOK
	}
	if p.Data == nil || len(p.Data.BadBytes) == 0 {
		score += scoreNotWeak
	}
	if p.Data != nil && len(p.Data.Bytes) > 0 {
		score += scoreHasData
	}
	return score
}

// CompareBits aligns revolutions at their index-relative offset and
// reports every position whose classified value differs between any two
// revolutions. Comparison runs over the shortest stream; trailing bits
// unique to longer revolutions carry no cross-read evidence.
func CompareBits(revBits [][]uint8) []WeakMark {
	if len(revBits) < 2 {
		return nil
	}
	minLen := len(revBits[0])
	for _, bits := range revBits[1:] {
		if len(bits) < minLen {
			minLen = len(bits)
		}
	}

	var marks []WeakMark
	total := len(revBits)
	for pos := 0; pos < minLen; pos++ {
		ones := 0
		for _, bits := range revBits {
			if bits[pos] == 1 {
				ones++
			}
		}
		if ones == 0 || ones == total {
			continue
		}
		minority := ones
		if zeros := total - ones; zeros < minority {
			minority = zeros
		}
		marks = append(marks, WeakMark{
			BitPos:   pos,
			Variance: float64(minority) / float64(total),
		})
	}
	return marks
}
