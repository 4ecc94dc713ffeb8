package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/go-cmp/cmp"
)

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	fieldErrs, ok := goerrors.GetValidationErrors(err)
	if !ok {
		t.Fatalf("GetValidationErrors(%v) ok = false, want true", err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	return fields
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 4096 {
		t.Errorf("Capacity = %d, want 4096", cfg.Capacity)
	}
	if cfg.NumShards != 64 {
		t.Errorf("NumShards = %d, want 64", cfg.NumShards)
	}
	if cfg.TTL != time.Hour {
		t.Errorf("TTL = %v, want %v", cfg.TTL, time.Hour)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("EvictionPercentage = %d, want 10", cfg.EvictionPercentage)
	}
	if cfg.EarlyRefresh != nil {
		t.Errorf("EarlyRefresh = %+v, want nil", cfg.EarlyRefresh)
	}
	if cfg.MissingRecordStorage {
		t.Error("MissingRecordStorage = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()

	tests := []struct {
		name       string
		mutate     func(*Config)
		wantFields []string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:       "zero capacity",
			mutate:     func(c *Config) { c.Capacity = 0 },
			wantFields: []string{"Capacity"},
		},
		{
			name:       "negative capacity",
			mutate:     func(c *Config) { c.Capacity = -1 },
			wantFields: []string{"Capacity"},
		},
		{
			name:       "zero shards",
			mutate:     func(c *Config) { c.NumShards = 0 },
			wantFields: []string{"NumShards"},
		},
		{
			name:       "zero ttl",
			mutate:     func(c *Config) { c.TTL = 0 },
			wantFields: []string{"TTL"},
		},
		{
			name:       "eviction percentage above 100",
			mutate:     func(c *Config) { c.EvictionPercentage = 101 },
			wantFields: []string{"EvictionPercentage"},
		},
		{
			name:       "negative eviction interval",
			mutate:     func(c *Config) { c.EvictionInterval = -time.Second },
			wantFields: []string{"EvictionInterval"},
		},
		{
			name: "valid early refresh",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{
					MinAsyncRefreshTime: time.Second,
					MaxAsyncRefreshTime: 2 * time.Second,
					SyncRefreshTime:     3 * time.Second,
					RetryBaseDelay:      10 * time.Millisecond,
				}
			},
		},
		{
			name: "negative early refresh delay",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{RetryBaseDelay: -time.Millisecond}
			},
			wantFields: []string{"EarlyRefresh.RetryBaseDelay"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !goerrors.IsValidation(err) {
				t.Errorf("IsValidation(%v) = false, want true", err)
			}
			if diff := cmp.Diff(tt.wantFields, validationFields(t, err)); diff != "" {
				t.Errorf("invalid fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want int
	}{
		{name: "defaults", cfg: DefaultConfig(), want: 0},
		{
			name: "all options",
			cfg: Config{
				EarlyRefresh:         &EarlyRefreshConfig{MinAsyncRefreshTime: time.Second},
				MissingRecordStorage: true,
				EvictionInterval:     time.Minute,
			},
			want: 3,
		},
		{
			name: "eviction interval only",
			cfg:  Config{EvictionInterval: time.Minute},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.cfg.ToSturdycOptions()); got != tt.want {
				t.Errorf("len(ToSturdycOptions()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewSturdycService(t *testing.T) {
	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSturdycService(DefaultConfig()) error = %v", err)
	}
	if svc == nil {
		t.Fatal("NewSturdycService() = nil, want service")
	}

	bad := DefaultConfig()
	bad.TTL = 0
	svc, err = NewSturdycService(bad)
	if err == nil {
		t.Fatal("NewSturdycService(zero TTL) error = nil, want validation error")
	}
	if svc != nil {
		t.Errorf("NewSturdycService(zero TTL) = %v, want nil", svc)
	}
}

func newTestService(t *testing.T) *sturdycService {
	t.Helper()
	svc, err := NewSturdycService(Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	})
	if err != nil {
		t.Fatalf("NewSturdycService() error = %v", err)
	}
	return svc
}

type artifact struct {
	Name string
	Ops  []byte
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("miss compiles then hit reuses", func(t *testing.T) {
		var calls int
		compile := func(ctx context.Context) (*artifact, error) {
			calls++
			return &artifact{Name: "line", Ops: []byte{1, 2}}, nil
		}

		first, err := svc.GetOrFetch(ctx, "precise::abc::abcdef", compile)
		if err != nil {
			t.Fatalf("GetOrFetch() error = %v", err)
		}
		second, err := svc.GetOrFetch(ctx, "precise::abc::abcdef", compile)
		if err != nil {
			t.Fatalf("GetOrFetch() error = %v", err)
		}

		if calls != 1 {
			t.Errorf("compile calls = %d, want 1", calls)
		}
		if first.(*artifact) != second.(*artifact) {
			t.Error("second GetOrFetch returned a different artifact")
		}
	})

	t.Run("compile error is returned and not cached", func(t *testing.T) {
		boom := errors.New("compile failed")
		var calls int
		compile := func(ctx context.Context) (any, error) {
			calls++
			return nil, boom
		}

		for i := 0; i < 2; i++ {
			if _, err := svc.GetOrFetch(ctx, "precise::err::err", compile); !errors.Is(err, boom) {
				t.Fatalf("GetOrFetch() error = %v, want %v", err, boom)
			}
		}
		if calls != 2 {
			t.Errorf("compile calls = %d, want 2", calls)
		}
	})

	t.Run("nil result is cached", func(t *testing.T) {
		var calls int
		compile := func(ctx context.Context) (any, error) {
			calls++
			return nil, nil
		}

		for i := 0; i < 2; i++ {
			got, err := svc.GetOrFetch(ctx, "precise::nil::nil", compile)
			if err != nil {
				t.Fatalf("GetOrFetch() error = %v", err)
			}
			if got != nil {
				t.Errorf("GetOrFetch() = %v, want nil", got)
			}
		}
		if calls != 1 {
			t.Errorf("compile calls = %d, want 1", calls)
		}
	})

	t.Run("invalid fetch functions", func(t *testing.T) {
		var nilFn func(context.Context) (any, error)
		tests := []struct {
			name    string
			fetchFn any
		}{
			{"nil", nil},
			{"typed nil", nilFn},
			{"not a function", "compile"},
			{"wrong arity", func() (any, error) { return nil, nil }},
			{"wrong parameter", func(string) (any, error) { return nil, nil }},
			{"wrong result", func(context.Context) (any, string) { return nil, "" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.GetOrFetch(ctx, "invalid", tt.fetchFn)
				if !goerrors.IsValidation(err) {
					t.Errorf("GetOrFetch() error = %v, want validation error", err)
				}
			})
		}
	})

	t.Run("concurrent misses compile once", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		compile := func(ctx context.Context) (string, error) {
			calls.Add(1)
			<-release
			return "artifact", nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.GetOrFetch(ctx, "precise::shared::shared", compile); err != nil {
					t.Errorf("GetOrFetch() error = %v", err)
				}
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		if got := calls.Load(); got != 1 {
			t.Errorf("compile calls = %d, want 1", got)
		}
	})
}

func TestSturdycService_Delete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var calls int
	compile := func(ctx context.Context) (string, error) {
		calls++
		return "artifact", nil
	}

	if _, err := svc.GetOrFetch(ctx, "k", compile); err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if err := svc.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetOrFetch(ctx, "k", compile); err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("compile calls = %d, want 2", calls)
	}
}

func TestSturdycService_DeleteByPrefix(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	keys := []string{
		"render::precise::aaa::aaaa",
		"render::source::line-3::1f",
		"layout::precise::bbb::bbbb",
	}
	for _, key := range keys {
		if _, err := svc.GetOrFetch(ctx, key, func(ctx context.Context) (string, error) { return key, nil }); err != nil {
			t.Fatalf("GetOrFetch(%q) error = %v", key, err)
		}
	}

	if err := svc.DeleteByPrefix(ctx, "render::"); err != nil {
		t.Fatalf("DeleteByPrefix() error = %v", err)
	}

	if diff := cmp.Diff([]string{"layout::precise::bbb::bbbb"}, svc.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestSturdycService_InvalidateKeys(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := svc.GetOrFetch(ctx, key, func(ctx context.Context) (string, error) { return key, nil }); err != nil {
			t.Fatalf("GetOrFetch(%q) error = %v", key, err)
		}
	}

	if err := svc.InvalidateKeys(ctx, []string{"a", "c", "missing"}); err != nil {
		t.Fatalf("InvalidateKeys() error = %v", err)
	}

	if diff := cmp.Diff([]string{"b"}, svc.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}
