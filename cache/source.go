package cache

import (
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goliatone/go-precise-cache/fingerprint"
)

// StrategySource names the strategy backed by SourceLocator.
const StrategySource = "source"

// SourceLocator keys a unit by the modification time and size of the file it
// was loaded from, plus its name and line. It never looks at the unit itself,
// so edits to globals go unnoticed until the file changes.
type SourceLocator struct {
	origin        Origin
	stamp         string
	disambiguator string
}

var _ Locator = (*SourceLocator)(nil)

// NewSourceLocator stats origin.Path. The boolean is false when the origin has
// no backing file.
func NewSourceLocator(origin Origin) (*SourceLocator, bool) {
	if origin.Path == "" {
		return nil, false
	}
	info, err := os.Stat(origin.Path)
	if err != nil || info.IsDir() {
		return nil, false
	}

	stamp := strconv.FormatInt(info.ModTime().UnixNano(), 10) + ":" + strconv.FormatInt(info.Size(), 10)

	name := snakeName(origin.Name)
	if name == "" {
		name = fmt.Sprintf("%016x", xxhash.Sum64String(origin.Path))
	}

	return &SourceLocator{
		origin:        origin,
		stamp:         fmt.Sprintf("%016x", xxhash.Sum64String(stamp)),
		disambiguator: name + "-" + strconv.Itoa(origin.Line),
	}, true
}

// SourceStamp returns a hash of the file's modification time and size.
func (l *SourceLocator) SourceStamp() string { return l.stamp }

// Disambiguator returns the snake_case name and line of the unit.
func (l *SourceLocator) Disambiguator() string { return l.disambiguator }

// Origin implements Locator.
func (l *SourceLocator) Origin() Origin { return l.origin }

// Strategy implements Locator.
func (l *SourceLocator) Strategy() string { return StrategySource }

type sourceStrategy struct{}

// SourceStrategy returns the file backed default Strategy.
func SourceStrategy() Strategy {
	return sourceStrategy{}
}

func (sourceStrategy) Name() string { return StrategySource }

func (sourceStrategy) Locate(_ fingerprint.Unit, origin Origin) (Locator, bool, error) {
	loc, ok := NewSourceLocator(origin)
	if !ok {
		return nil, false, nil
	}
	return loc, true, nil
}
