package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/canonical"
	"github.com/tmthrgd/go-hex"
	"github.com/vmihailenco/msgpack/v5"
)

// DisambiguatorLength is the default length of the short tag sliced from a
// fingerprint.
const DisambiguatorLength = 10

// Option configures a Deriver.
type Option func(*Deriver)

// WithEncoder replaces the encoder used for plain globals.
func WithEncoder(enc canonical.Encoder) Option {
	return func(d *Deriver) {
		if enc != nil {
			d.encoder = enc
		}
	}
}

// Deriver computes fingerprints. It holds no mutable state and is safe for
// concurrent use.
type Deriver struct {
	encoder canonical.Encoder
}

// NewDeriver creates a Deriver using the canonical encoder unless overridden.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{encoder: canonical.NewEncoder()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDeriver = NewDeriver()

// Derive fingerprints u with the default Deriver.
func Derive(u Unit) (Fingerprint, error) {
	return defaultDeriver.Derive(u)
}

// Derive hashes the instruction bytes of u followed by the canonical encoding
// of the contributions of every referenced global. Globals that are not
// referenced by name, or whose contribution is absent, leave no trace in the
// result. Callers only need to handle ErrMalformedUnit.
func (d *Deriver) Derive(u Unit) (Fingerprint, error) {
	code, names, globals, err := inspect(u)
	if err != nil {
		return Fingerprint{}, err
	}

	contributions := make(map[string]any, len(names))
	seen := make(map[string]struct{}, len(names))
	var excluded []string

	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		v, ok := globals[name]
		if !ok {
			continue
		}
		b, ok := d.contribute(v)
		if !ok {
			excluded = append(excluded, name)
			continue
		}
		contributions[name] = b
	}

	var buf bytes.Buffer
	buf.Write(code)
	if err := msgpack.NewEncoder(&buf).EncodeMapSorted(contributions); err != nil {
		return Fingerprint{}, goerrors.Wrap(err, goerrors.CategoryInternal, "encode global contributions")
	}

	sum := sha256.Sum256(buf.Bytes())
	return Fingerprint{
		sum:      hex.EncodeToString(sum[:]),
		included: sortedKeys(contributions),
		excluded: sortedCopy(excluded),
	}, nil
}

// contribute classifies v and returns its bytes. Anything that goes wrong
// with a single value, panics included, excludes that value.
func (d *Deriver) contribute(v any) (b []byte, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b, ok = nil, false
		}
	}()
	return Classify(v).Contribution(d.encoder)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
