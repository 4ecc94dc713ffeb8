package cache

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/fingerprint"
)

// ErrNoLocator is returned by Chain.Locate when no strategy applies.
var ErrNoLocator = errors.New("cache: no locator available")

// Chain is an ordered list of strategies. The first strategy that applies
// wins. Chains are values; Prepend and Append return new chains and never
// modify the receiver.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain from strategies in priority order. Nil entries are skipped.
func NewChain(strategies ...Strategy) Chain {
	c := Chain{strategies: make([]Strategy, 0, len(strategies))}
	for _, s := range strategies {
		if s != nil {
			c.strategies = append(c.strategies, s)
		}
	}
	return c
}

// DefaultChain holds the coarse strategies every dispatcher falls back to.
func DefaultChain() Chain {
	return NewChain(SourceStrategy())
}

// PreciseChain puts PreciseStrategy ahead of base, leaving base intact for
// callers that did not opt in.
func PreciseChain(base Chain, opts ...LocatorOption) Chain {
	return base.Prepend(PreciseStrategy(opts...))
}

// Prepend returns a chain with s tried before every existing strategy.
func (c Chain) Prepend(s Strategy) Chain {
	return NewChain(append([]Strategy{s}, c.strategies...)...)
}

// Append returns a chain with strategies tried after every existing one.
func (c Chain) Append(strategies ...Strategy) Chain {
	return NewChain(append(append([]Strategy(nil), c.strategies...), strategies...)...)
}

// Strategies returns a copy of the strategies in priority order.
func (c Chain) Strategies() []Strategy {
	return append([]Strategy(nil), c.strategies...)
}

// Names returns the strategy names in priority order.
func (c Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of strategies.
func (c Chain) Len() int { return len(c.strategies) }

// Locate asks each strategy in order for a locator. A strategy error stops
// the walk and is returned as is.
func (c Chain) Locate(u fingerprint.Unit, origin Origin) (Locator, error) {
	for _, s := range c.strategies {
		loc, ok, err := s.Locate(u, origin)
		if err != nil {
			return nil, err
		}
		if ok && loc != nil {
			return loc, nil
		}
	}

	return nil, goerrors.Wrap(ErrNoLocator, goerrors.CategoryNotFound,
		"cannot cache "+describe(origin)+": tried ["+strings.Join(c.Names(), ", ")+"]").
		WithTextCode("NO_LOCATOR")
}

func describe(o Origin) string {
	switch {
	case o.Name != "" && o.Path != "":
		return o.Name + " (" + o.Path + ")"
	case o.Name != "":
		return o.Name
	case o.Path != "":
		return o.Path
	default:
		return "anonymous unit"
	}
}
