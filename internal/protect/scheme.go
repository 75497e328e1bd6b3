package protect

// schemeSignature names a documented protection scheme by the set of
// marker kinds it leaves on a track.
type schemeSignature struct {
	name     string
	requires []MarkerKind
}

// Signatures ordered most-specific first; the first full match wins.
var schemeTable = []schemeSignature{
	{"Copylock", []MarkerKind{MarkerLongTrack, MarkerWeakBits}},
	{"V-Max", []MarkerKind{MarkerDuplicateSector, MarkerWeakBits}},
	{"Speedlock", []MarkerKind{MarkerWeakBits, MarkerMissingSector}},
	{"Protoscan longtrack", []MarkerKind{MarkerLongTrack}},
}

func matchScheme(markers []Marker) string {
	present := make(map[MarkerKind]bool, len(markers))
	for _, m := range markers {
		present[m.Kind] = true
	}
	for _, sig := range schemeTable {
		matched := true
		for _, k := range sig.requires {
			if !present[k] {
				matched = false
				break
			}
		}
		if matched {
			return sig.name
		}
	}
	return ""
}
