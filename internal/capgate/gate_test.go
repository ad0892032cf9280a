package capgate

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/redis/go-redis/v9"

	"github.com/elvin-stowell/csds-312-final-project/internal/model"
)

type fakeSource struct {
	caps  map[string]null.Float
	errs  map[string]error
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{caps: map[string]null.Float{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSource) MarketCap(_ context.Context, symbol string) (null.Float, error) {
	f.calls[symbol]++
	if err := f.errs[symbol]; err != nil {
		return null.Float{}, err
	}
	return f.caps[symbol], nil
}

func TestEligibleThresholdIsInclusive(t *testing.T) {
	cases := []struct {
		name string
		cap  null.Float
		want bool
	}{
		{"above", null.FloatFrom(DefaultThreshold + 1), true},
		{"equal", null.FloatFrom(DefaultThreshold), true},
		{"below", null.FloatFrom(DefaultThreshold - 1), false},
		{"zero", null.FloatFrom(0), false},
		{"absent", null.Float{}, false},
	}
	for _, tc := range cases {
		if got := Eligible(tc.cap, DefaultThreshold); got != tc.want {
			t.Errorf("%s: Eligible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGateDecisions(t *testing.T) {
	src := newFakeSource()
	src.caps["BIG"] = null.FloatFrom(2e9)
	src.caps["SMALL"] = null.FloatFrom(1e8)
	src.caps["NONE"] = null.Float{}
	src.errs["DOWN"] = errors.New("connection refused")

	g := New(src, DefaultThreshold, nil)
	ctx := context.Background()

	if d := g.IsEligible(ctx, "BIG"); !d.Eligible || d.MarketCap.Float64 != 2e9 {
		t.Errorf("BIG = %+v", d)
	}
	if d := g.IsEligible(ctx, "SMALL"); d.Eligible || !d.MarketCap.Valid {
		t.Errorf("SMALL = %+v", d)
	}
	if d := g.IsEligible(ctx, "NONE"); d.Eligible || d.MarketCap.Valid {
		t.Errorf("NONE = %+v", d)
	}
	if d := g.IsEligible(ctx, "DOWN"); d.Eligible || d.MarketCap.Valid {
		t.Errorf("DOWN = %+v", d)
	}
}

func TestGateCacheSharesSnapshot(t *testing.T) {
	src := newFakeSource()
	src.caps["AAPL"] = null.FloatFrom(3e12)
	src.errs["DOWN"] = errors.New("timeout")

	g := New(src, DefaultThreshold, NewMemoryCache(time.Hour))
	ctx := context.Background()

	first := g.IsEligible(ctx, "AAPL")
	src.caps["AAPL"] = null.FloatFrom(1)
	second := g.IsEligible(ctx, "AAPL")
	if src.calls["AAPL"] != 1 {
		t.Errorf("source called %d times, want 1", src.calls["AAPL"])
	}
	if first != second {
		t.Errorf("cached decision changed: %+v vs %+v", first, second)
	}

	g.IsEligible(ctx, "DOWN")
	g.IsEligible(ctx, "DOWN")
	if src.calls["DOWN"] != 2 {
		t.Errorf("failed lookups should not be cached, calls = %d", src.calls["DOWN"])
	}
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, model.CapSnapshot{Symbol: "X", MarketCap: null.FloatFrom(1)})
	if _, ok := c.Get(ctx, "X"); !ok {
		t.Fatal("expected hit before expiry")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get(ctx, "X"); ok {
		t.Fatal("expected miss at expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len = %d", c.Len())
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	c := NewRedisCache(rdb, time.Minute)
	c.prefix = "marketcap-test"
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer rdb.Del(ctx, c.key("CAP"), c.key("NOCAP"))

	at := time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)
	c.Set(ctx, model.CapSnapshot{Symbol: "CAP", MarketCap: null.FloatFrom(7.5e8), FetchedAt: at})
	c.Set(ctx, model.CapSnapshot{Symbol: "NOCAP", FetchedAt: at})

	got, ok := c.Get(ctx, "CAP")
	if !ok || got.MarketCap.Float64 != 7.5e8 || !got.FetchedAt.Equal(at) {
		t.Errorf("CAP = %+v, %v", got, ok)
	}
	got, ok = c.Get(ctx, "NOCAP")
	if !ok || got.MarketCap.Valid {
		t.Errorf("NOCAP = %+v, %v", got, ok)
	}
	if _, ok := c.Get(ctx, "MISSING"); ok {
		t.Error("expected miss")
	}
}
