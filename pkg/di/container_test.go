package di

import (
	"context"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-precise-cache/cache"
	"github.com/goliatone/go-precise-cache/dispatch"
	"github.com/goliatone/go-precise-cache/fingerprint"
	"github.com/goliatone/go-precise-cache/internal/metrics"
	"go.uber.org/zap"
)

func testOptions() []Option {
	return []Option{WithLogger(zap.NewNop()), WithMetrics(metrics.New(nil))}
}

func TestNewContainer(t *testing.T) {
	config := cache.DefaultConfig()
	config.Capacity = 1000
	config.TTL = 5 * time.Minute
	config.PreciseByDefault = true
	config.DisambiguatorLength = 12

	container, err := NewContainer(config, testOptions()...)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}

	if container.CacheService() == nil {
		t.Error("CacheService() = nil, want store")
	}
	if container.Logger() == nil {
		t.Error("Logger() = nil, want logger")
	}
	if got := container.Chain().Names(); len(got) != 1 || got[0] != cache.StrategySource {
		t.Errorf("Chain().Names() = %v, want [%s]", got, cache.StrategySource)
	}

	stored := container.Config()
	if stored.Capacity != config.Capacity {
		t.Errorf("Config().Capacity = %d, want %d", stored.Capacity, config.Capacity)
	}
	if stored.TTL != config.TTL {
		t.Errorf("Config().TTL = %v, want %v", stored.TTL, config.TTL)
	}
	if !stored.PreciseByDefault {
		t.Error("Config().PreciseByDefault = false, want true")
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*cache.Config)
	}{
		{name: "zero capacity", mutate: func(c *cache.Config) { c.Capacity = 0 }},
		{name: "zero ttl", mutate: func(c *cache.Config) { c.TTL = 0 }},
		{name: "zero disambiguator", mutate: func(c *cache.Config) { c.DisambiguatorLength = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := cache.DefaultConfig()
			tt.mutate(&config)

			container, err := NewContainer(config, testOptions()...)
			if !goerrors.IsValidation(err) {
				t.Errorf("NewContainer() error = %v, want validation error", err)
			}
			if container != nil {
				t.Error("NewContainer() returned a container with an invalid config")
			}
		})
	}
}

func TestNewContainerFromEnv(t *testing.T) {
	t.Setenv(cache.EnvPrecise, "1")
	t.Setenv(cache.EnvDebug, "")

	container, err := NewContainerFromEnv(testOptions()...)
	if err != nil {
		t.Fatalf("NewContainerFromEnv() error = %v", err)
	}
	if !container.Config().PreciseByDefault {
		t.Error("PreciseByDefault = false, want true from environment")
	}

	t.Setenv(cache.EnvPrecise, "sometimes")
	if _, err := NewContainerFromEnv(testOptions()...); !goerrors.IsValidation(err) {
		t.Errorf("NewContainerFromEnv() error = %v, want validation error", err)
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults(testOptions()...)
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() error = %v", err)
	}

	if container.CacheService() != container.CacheService() {
		t.Error("CacheService() returned different instances")
	}
}

func TestNewDispatcher_OverridesContainer(t *testing.T) {
	config := cache.DefaultConfig()
	config.PreciseByDefault = true

	container, err := NewContainer(config, testOptions()...)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}

	unit := &fingerprint.Callable{Bytecode: []byte{0x01}, Scope: map[string]any{}}
	compile := func(ctx context.Context, u fingerprint.Unit) (string, error) { return "artifact", nil }

	d := NewDispatcher[string](container, unit, cache.Origin{Name: "f"}, compile,
		dispatch.WithPreciseDefault(false), dispatch.WithNamespace("custom"))
	if d.PreciseCachingEnabled() {
		t.Error("PreciseCachingEnabled() = true, want dispatcher option to win")
	}

	d.EnablePreciseCaching()
	if _, _, err := d.Compile(context.Background()); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	keys := d.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "custom"+cache.KeySeparator) {
		t.Errorf("Keys() = %v, want one key in namespace custom", keys)
	}
}

func TestNewDispatcher_InheritsContainer(t *testing.T) {
	unit := &fingerprint.Callable{
		Bytecode:   []byte{0x01, 0x02},
		Referenced: []string{"g"},
		Scope:      map[string]any{"g": 1},
	}
	compile := func(ctx context.Context, u fingerprint.Unit) (string, error) { return "artifact", nil }

	tests := []struct {
		name        string
		precise     bool
		wantEnabled bool
	}{
		{name: "process-wide off", precise: false, wantEnabled: false},
		{name: "process-wide on", precise: true, wantEnabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := cache.DefaultConfig()
			config.PreciseByDefault = tt.precise
			config.DisambiguatorLength = 16

			container, err := NewContainer(config, testOptions()...)
			if err != nil {
				t.Fatalf("NewContainer() error = %v", err)
			}

			d := NewDispatcher[string](container, unit, cache.Origin{Name: "f"}, compile)
			if got := d.PreciseCachingEnabled(); got != tt.wantEnabled {
				t.Errorf("PreciseCachingEnabled() = %v, want %v", got, tt.wantEnabled)
			}

			d.EnablePreciseCaching()
			loc, err := d.Locator()
			if err != nil {
				t.Fatalf("Locator() error = %v", err)
			}
			if got := len(loc.Disambiguator()); got != 16 {
				t.Errorf("len(Disambiguator()) = %d, want 16 from config", got)
			}
		})
	}
}

type plainStore struct {
	cache.CacheService
}

func TestContainer_Purge(t *testing.T) {
	container, err := NewContainerWithDefaults(testOptions()...)
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() error = %v", err)
	}
	ctx := context.Background()

	calls := 0
	compile := func(ctx context.Context, u fingerprint.Unit) (int, error) {
		calls++
		return calls, nil
	}
	unit := &fingerprint.Callable{Bytecode: []byte{0x01}, Scope: map[string]any{}}

	render := NewDispatcher[int](container, unit, cache.Origin{Name: "render"}, compile)
	layout := NewDispatcher[int](container, unit, cache.Origin{Name: "layout"}, compile)
	render.EnablePreciseCaching()
	layout.EnablePreciseCaching()

	if _, _, err := render.Compile(ctx); err != nil {
		t.Fatalf("render.Compile() error = %v", err)
	}
	if _, _, err := layout.Compile(ctx); err != nil {
		t.Fatalf("layout.Compile() error = %v", err)
	}

	if err := container.Purge(ctx, "render"); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}

	if _, res, _ := render.Compile(ctx); res != dispatch.Miss {
		t.Errorf("render after Purge = %v, want %v", res, dispatch.Miss)
	}
	if _, res, _ := layout.Compile(ctx); res != dispatch.Hit {
		t.Errorf("layout after Purge = %v, want %v", res, dispatch.Hit)
	}

	if err := container.Purge(ctx, ""); !goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		t.Errorf("Purge(\"\") error = %v, want bad input error", err)
	}
	if _, res, _ := layout.Compile(ctx); res != dispatch.Hit {
		t.Errorf("layout after Purge(\"\") = %v, want %v", res, dispatch.Hit)
	}

	container.store = plainStore{container.store}
	err = container.Purge(ctx, "render")
	if !goerrors.IsCategory(err, goerrors.CategoryOperation) {
		t.Errorf("Purge() error = %v, want operation error", err)
	}
}
