package cache

import (
	"github.com/goliatone/go-precise-cache/fingerprint"
)

// StrategyPrecise names the strategy backed by PreciseLocator.
const StrategyPrecise = "precise"

type locatorOptions struct {
	disambiguatorLength int
	deriver             *fingerprint.Deriver
}

// LocatorOption configures precise locators.
type LocatorOption func(*locatorOptions)

// WithDisambiguatorLength sets how many characters of the stamp form the
// disambiguator. Values below 1 keep fingerprint.DisambiguatorLength.
func WithDisambiguatorLength(n int) LocatorOption {
	return func(o *locatorOptions) {
		if n > 0 {
			o.disambiguatorLength = n
		}
	}
}

// WithDeriver replaces the fingerprint deriver.
func WithDeriver(d *fingerprint.Deriver) LocatorOption {
	return func(o *locatorOptions) {
		if d != nil {
			o.deriver = d
		}
	}
}

func newLocatorOptions(opts []LocatorOption) locatorOptions {
	o := locatorOptions{disambiguatorLength: fingerprint.DisambiguatorLength}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PreciseLocator keys a unit by the fingerprint of its instructions and
// referenced globals. The fingerprint is derived once, at construction.
type PreciseLocator struct {
	origin        Origin
	fp            fingerprint.Fingerprint
	disambiguator string
}

var _ Locator = (*PreciseLocator)(nil)

// NewPreciseLocator derives the fingerprint of u. It fails only for malformed
// units; globals that cannot be encoded are left out of the fingerprint.
func NewPreciseLocator(u fingerprint.Unit, origin Origin, opts ...LocatorOption) (*PreciseLocator, error) {
	o := newLocatorOptions(opts)

	var (
		fp  fingerprint.Fingerprint
		err error
	)
	if o.deriver != nil {
		fp, err = o.deriver.Derive(u)
	} else {
		fp, err = fingerprint.Derive(u)
	}
	if err != nil {
		return nil, err
	}

	return &PreciseLocator{
		origin:        origin,
		fp:            fp,
		disambiguator: fp.Disambiguator(o.disambiguatorLength),
	}, nil
}

// SourceStamp returns the full fingerprint.
func (l *PreciseLocator) SourceStamp() string { return l.fp.String() }

// Disambiguator returns the leading characters of SourceStamp.
func (l *PreciseLocator) Disambiguator() string { return l.disambiguator }

// Origin implements Locator.
func (l *PreciseLocator) Origin() Origin { return l.origin }

// Strategy implements Locator.
func (l *PreciseLocator) Strategy() string { return StrategyPrecise }

// Fingerprint returns the derived fingerprint.
func (l *PreciseLocator) Fingerprint() fingerprint.Fingerprint { return l.fp }

type preciseStrategy struct {
	opts []LocatorOption
}

// PreciseStrategy returns a Strategy that applies to every well formed unit.
func PreciseStrategy(opts ...LocatorOption) Strategy {
	return &preciseStrategy{opts: opts}
}

func (s *preciseStrategy) Name() string { return StrategyPrecise }

func (s *preciseStrategy) Locate(u fingerprint.Unit, origin Origin) (Locator, bool, error) {
	loc, err := NewPreciseLocator(u, origin, s.opts...)
	if err != nil {
		return nil, false, err
	}
	return loc, true, nil
}
