package encoding

import (
	"math"

	"fluxdec/internal/flux"
)

// DetectScheme infers the encoding family from a histogram of interval
// widths, bucketed in multiples of the nominal elementary cell. It is a
// pure function so container readers can pick a decoder before invoking
// the pipeline.
//
// Signatures, relative to a 2us-class cell: FM transitions sit at 2 and 4
// cells only; MFM adds a 3-cell peak; the GCR families run wider cells,
// which pushes their longest codes out to 5 (1541) or 6 (Apple) buckets.
func DetectScheme(intervals []flux.Interval, sampleClockHz uint32, nominalCellNS float64) Scheme {
	if len(intervals) == 0 || nominalCellNS <= 0 {
		return SchemeMFM
	}

	const maxBucket = 8
	var counts [maxBucket + 1]int
	total := 0
	tickNS := 1e9 / float64(sampleClockHz)
	for _, iv := range intervals {
		bucket := int(math.Round(float64(iv) * tickNS / nominalCellNS))
		if bucket < 1 {
			continue
		}
		if bucket > maxBucket {
			bucket = maxBucket
		}
		counts[bucket]++
		total++
	}
	if total == 0 {
		return SchemeMFM
	}

	frac := func(bucket int) float64 { return float64(counts[bucket]) / float64(total) }

	// The long-code buckets are empty for FM and MFM, so even a small
	// share is decisive for GCR.
	if frac(5) > 0.02 {
		return SchemeGCRC64
	}
	if frac(6)+frac(7)+frac(8) > 0.02 {
		return SchemeGCRApple
	}
	if frac(3) > 0.05 {
		return SchemeMFM
	}
	return SchemeFM
}
