package fingerprint

// Fingerprint is the lowercase hex SHA-256 of a unit's semantic content.
// It is immutable once derived.
type Fingerprint struct {
	sum      string
	included []string
	excluded []string
}

// String returns the full hex digest.
func (f Fingerprint) String() string { return f.sum }

// IsZero reports whether f was never derived.
func (f Fingerprint) IsZero() bool { return f.sum == "" }

// Disambiguator returns the first n characters of the digest. n is clamped
// to the digest length; values below 1 use DisambiguatorLength.
func (f Fingerprint) Disambiguator(n int) string {
	if n < 1 {
		n = DisambiguatorLength
	}
	if n > len(f.sum) {
		n = len(f.sum)
	}
	return f.sum[:n]
}

// Included lists the referenced globals that contributed to the digest, sorted.
func (f Fingerprint) Included() []string {
	return append([]string(nil), f.included...)
}

// Excluded lists the referenced globals that were left out because they could
// not be encoded, sorted. It is diagnostic only and never part of the digest.
func (f Fingerprint) Excluded() []string {
	return append([]string(nil), f.excluded...)
}
