package clustercache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/clustercache/codec"
	"github.com/unkn0wn-root/clustercache/internal/util"
	pr "github.com/unkn0wn-root/clustercache/provider"
	"github.com/unkn0wn-root/clustercache/provider/memory"
	rp "github.com/unkn0wn-root/clustercache/provider/redis"
	"github.com/unkn0wn-root/clustercache/tagindex"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// failingProvider fails Del for selected keys and records SET TTLs.
type failingProvider struct {
	pr.Provider
	failDel map[string]error
	ttls    map[string]time.Duration
}

func (f *failingProvider) Del(ctx context.Context, key string) (int64, error) {
	if err, ok := f.failDel[key]; ok {
		return 0, err
	}
	return f.Provider.Del(ctx, key)
}

func (f *failingProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if f.ttls == nil {
		f.ttls = make(map[string]time.Duration)
	}
	f.ttls[key] = ttl
	return f.Provider.Set(ctx, key, value, ttl)
}

func newTestDriver(t *testing.T, p pr.Provider, optsOpt func(*Options)) *Driver {
	t.Helper()
	opts := DefaultOptions()
	opts.Dial = func(context.Context, rp.ClusterConfig) (pr.Provider, error) { return p, nil }
	if optsOpt != nil {
		optsOpt(&opts)
	}
	d, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestSetGetHas(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	d := newTestDriver(t, mp, func(o *Options) { o.Prefix = "app:" })

	if ok, err := d.Has(ctx, "k"); err != nil || ok {
		t.Fatalf("Has on empty store: %v %v", ok, err)
	}
	if got, err := d.Get(ctx, "k", "fallback"); err != nil || got != "fallback" {
		t.Fatalf("Get miss = %#v, %v", got, err)
	}
	if got, err := d.Get(ctx, "k", nil); err != nil || got != nil {
		t.Fatalf("Get miss with nil default = %#v, %v", got, err)
	}

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"s", "hello", "hello"},
		{"n", 42, "42"},
		{"f", 1.5, "1.5"},
		{"b", true, "true"},
		{"lookalike", codec.DefaultMarker + "[1]", codec.DefaultMarker + "[1]"},
		{"m", map[string]any{"1": "one", "list": []any{float64(1), "x"}}, map[string]any{"1": "one", "list": []any{float64(1), "x"}}},
		{"l", []string{"a", "b"}, []any{"a", "b"}},
	}
	for _, tc := range cases {
		if ok, err := d.Set(ctx, tc.name, tc.in, 0); err != nil || !ok {
			t.Fatalf("Set(%s): %v %v", tc.name, ok, err)
		}
		got, err := d.Get(ctx, tc.name, nil)
		if err != nil {
			t.Fatalf("Get(%s): %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Get(%s) = %#v, want %#v", tc.name, got, tc.want)
		}
		if ok, _ := d.Has(ctx, tc.name); !ok {
			t.Fatalf("Has(%s) = false after Set", tc.name)
		}
		if ok, _ := mp.Exists(ctx, "app:"+tc.name); !ok {
			t.Fatalf("key %q must be stored with prefix", tc.name)
		}
	}

	raw, _, _ := mp.Get(ctx, "app:m")
	if !strings.HasPrefix(string(raw), codec.DefaultMarker) {
		t.Fatalf("structured value stored without marker: %q", raw)
	}
	raw, _, _ = mp.Get(ctx, "app:n")
	if string(raw) != "42" {
		t.Fatalf("scalar stored as %q", raw)
	}
}

func TestGetIntoAndGetAs(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), nil)

	type profile struct {
		ID    int      `json:"id"`
		Roles []string `json:"roles"`
	}
	in := profile{ID: 7, Roles: []string{"admin"}}
	if _, err := d.Set(ctx, "p", in); err != nil {
		t.Fatal(err)
	}
	var out profile
	if found, err := d.GetInto(ctx, "p", &out); err != nil || !found || !reflect.DeepEqual(out, in) {
		t.Fatalf("GetInto = %+v found=%v err=%v", out, found, err)
	}
	if found, err := d.GetInto(ctx, "missing", &out); err != nil || found {
		t.Fatalf("GetInto miss: found=%v err=%v", found, err)
	}

	_, _ = d.Set(ctx, "n", 12)
	if n, err := GetAs[int64](ctx, d, "n", -1); err != nil || n != 12 {
		t.Fatalf("GetAs[int64] = %d, %v", n, err)
	}
	if n, err := GetAs[int64](ctx, d, "absent", -1); err != nil || n != -1 {
		t.Fatalf("GetAs default = %d, %v", n, err)
	}
}

func TestExpire(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	mp := memory.New()
	mp.SetClock(clk.Now)
	fp := &failingProvider{Provider: mp}
	d := newTestDriver(t, fp, func(o *Options) { o.Expire = time.Minute })

	_, _ = d.Set(ctx, "short", "v", time.Second)
	_, _ = d.Set(ctx, "default", "v")
	_, _ = d.Set(ctx, "forever", "v", 0)
	_, _ = d.Set(ctx, "negative", "v", -time.Second)

	want := map[string]time.Duration{"short": time.Second, "default": time.Minute, "forever": 0, "negative": 0}
	for k, ttl := range want {
		if fp.ttls[k] != ttl {
			t.Fatalf("ttl(%s) = %v, want %v", k, fp.ttls[k], ttl)
		}
	}

	clk.Advance(2 * time.Second)
	if got, _ := d.Get(ctx, "short", "D"); got != "D" {
		t.Fatalf("expired key returned %#v", got)
	}
	if got, _ := d.Get(ctx, "default", "D"); got != "v" {
		t.Fatalf("default-expire key gone early: %#v", got)
	}
	clk.Advance(time.Hour)
	if got, _ := d.Get(ctx, "default", "D"); got != "D" {
		t.Fatalf("default-expire key should be gone: %#v", got)
	}
	if got, _ := d.Get(ctx, "forever", "D"); got != "v" {
		t.Fatalf("no-expire key gone: %#v", got)
	}
}

func TestIncDec(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), nil)

	if n, err := d.Inc(ctx, "hits", 1); err != nil || n != 1 {
		t.Fatalf("Inc on absent = %d, %v", n, err)
	}
	if n, err := d.Inc(ctx, "hits", 5); err != nil || n != 6 {
		t.Fatalf("Inc = %d, %v", n, err)
	}
	if n, err := d.Dec(ctx, "hits", 10); err != nil || n != -4 {
		t.Fatalf("Dec = %d, %v", n, err)
	}

	// scalars stay store-native
	_, _ = d.Set(ctx, "stock", 10)
	if n, err := d.Dec(ctx, "stock", 3); err != nil || n != 7 {
		t.Fatalf("Dec after Set = %d, %v", n, err)
	}
	if got, _ := d.Get(ctx, "stock", nil); got != "7" {
		t.Fatalf("Get after Dec = %#v", got)
	}

	// an enveloped value is not a counter
	_, _ = d.Set(ctx, "obj", map[string]int{"n": 1})
	_, err := d.Inc(ctx, "obj", 1)
	var se *StoreOperationError
	if !errors.As(err, &se) || se.Op != "inc" || !errors.Is(err, memory.ErrNotInteger) {
		t.Fatalf("Inc on envelope: expected StoreOperationError wrapping ErrNotInteger, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), nil)

	_, _ = d.Set(ctx, "k", "v")
	if ok, err := d.Delete(ctx, "k"); err != nil || !ok {
		t.Fatalf("Delete existing = %v, %v", ok, err)
	}
	if ok, err := d.Delete(ctx, "k"); err != nil || ok {
		t.Fatalf("Delete absent = %v, %v", ok, err)
	}
	if ok, _ := d.Has(ctx, "k"); ok {
		t.Fatalf("key survived Delete")
	}
}

func TestClearFlushesEverything(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	d := newTestDriver(t, mp, func(o *Options) { o.Prefix = "a:" })

	_, _ = d.Set(ctx, "x", 1)
	_, _ = mp.Set(ctx, "other-app:y", []byte("1"), 0)
	if ok, err := d.Clear(ctx); err != nil || !ok {
		t.Fatalf("Clear = %v, %v", ok, err)
	}
	if mp.Len() != 0 {
		t.Fatalf("Clear must flush the whole database, %d keys left", mp.Len())
	}
}

func TestTaggedSetAndClearTag(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	h := &recHooks{}
	d := newTestDriver(t, mp, func(o *Options) {
		o.Prefix = "app:"
		o.Hooks = h
	})

	tg := d.Tag("T")
	if _, err := tg.Set(ctx, "a", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := tg.Set(ctx, "b", 2); err != nil {
		t.Fatal(err)
	}
	// overwrite of an existing key is not recorded again
	if _, err := tg.Set(ctx, "a", 3); err != nil {
		t.Fatal(err)
	}
	_, _ = d.Set(ctx, "untagged", 4)

	members, err := tg.Members(ctx)
	if err != nil || !reflect.DeepEqual(members, []string{"app:a", "app:b"}) {
		t.Fatalf("Members = %v, %v", members, err)
	}
	recordKey := util.TagRecordKey("app:", "T")
	if ok, _ := mp.Exists(ctx, recordKey); !ok {
		t.Fatalf("tag record %q missing", recordKey)
	}

	if ok, err := d.ClearTag(ctx, "T"); err != nil || !ok {
		t.Fatalf("ClearTag = %v, %v", ok, err)
	}
	for _, k := range []string{"a", "b"} {
		if ok, _ := d.Has(ctx, k); ok {
			t.Fatalf("Has(%s) after ClearTag", k)
		}
	}
	if ok, _ := d.Has(ctx, "untagged"); !ok {
		t.Fatalf("untagged key must survive ClearTag")
	}
	if members, _ := tg.Members(ctx); len(members) != 0 {
		t.Fatalf("Members after clear = %v", members)
	}
	if h.cleared["T"] != 2 {
		t.Fatalf("TagCleared hook = %v", h.cleared)
	}
}

func TestTagAttachAndRemember(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), nil)

	_, _ = d.Set(ctx, "pre", "x")
	tg := d.Tag("grp")
	if err := tg.Attach(ctx, "pre"); err != nil {
		t.Fatal(err)
	}
	calls := 0
	fn := func(context.Context) (any, error) { calls++; return "computed", nil }
	for i := 0; i < 2; i++ {
		v, err := tg.Remember(ctx, "lazy", fn)
		if err != nil || v != "computed" {
			t.Fatalf("Remember = %#v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
	if ok, err := tg.Clear(ctx); err != nil || !ok {
		t.Fatalf("Tagged.Clear = %v, %v", ok, err)
	}
	for _, k := range []string{"pre", "lazy"} {
		if ok, _ := d.Has(ctx, k); ok {
			t.Fatalf("%s survived tag clear", k)
		}
	}
}

func TestClearTagPartialFailure(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	boom := errors.New("CLUSTERDOWN The cluster is down")
	fp := &failingProvider{Provider: mp, failDel: map[string]error{"b": boom}}
	h := &recHooks{}
	d := newTestDriver(t, fp, func(o *Options) { o.Hooks = h })

	tg := d.Tag("T")
	for _, k := range []string{"a", "b", "c"} {
		_, _ = tg.Set(ctx, k, k)
	}

	ok, err := d.ClearTag(ctx, "T")
	var tce *tagindex.TagClearError
	if ok || !errors.As(err, &tce) || !errors.Is(err, boom) {
		t.Fatalf("ClearTag = %v, %v", ok, err)
	}
	if h.clearErrs != 1 {
		t.Fatalf("TagClearFailed hook not fired")
	}
	if has, _ := d.Has(ctx, "a"); has {
		t.Fatalf("independent deletes must continue past a failure")
	}

	delete(fp.failDel, "b")
	if ok, err := d.ClearTag(ctx, "T"); err != nil || !ok {
		t.Fatalf("retry ClearTag = %v, %v", ok, err)
	}
	if has, _ := d.Has(ctx, "b"); has {
		t.Fatalf("retry must remove the remaining member")
	}
}

func TestClearTagToleratesStaleRecord(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	recordKey := util.TagRecordKey("", "T")
	fp := &failingProvider{Provider: mp, failDel: map[string]error{recordKey: errors.New("MOVED 1234 10.0.0.3:7000")}}
	h := &recHooks{}
	d := newTestDriver(t, fp, func(o *Options) { o.Hooks = h })

	_, _ = d.Tag("T").Set(ctx, "a", 1)
	if ok, err := d.ClearTag(ctx, "T"); err != nil || !ok {
		t.Fatalf("ClearTag with stale record = %v, %v", ok, err)
	}
	if has, _ := d.Has(ctx, "a"); has {
		t.Fatalf("member must be deleted")
	}
	if h.clearErrs != 1 {
		t.Fatalf("stale record should still be reported to hooks")
	}

	// the stale record lists an absent member; clearing again tolerates it
	delete(fp.failDel, recordKey)
	if ok, err := d.ClearTag(ctx, "T"); err != nil || !ok {
		t.Fatalf("second ClearTag = %v, %v", ok, err)
	}
	if ok, _ := mp.Exists(ctx, recordKey); ok {
		t.Fatalf("record should be gone")
	}
}

func TestRememberAndPull(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), nil)

	boom := errors.New("db down")
	if _, err := d.Remember(ctx, "k", func(context.Context) (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Remember should surface fn error, got %v", err)
	}
	if ok, _ := d.Has(ctx, "k"); ok {
		t.Fatalf("failed Remember must not store")
	}
	v, err := d.Remember(ctx, "k", func(context.Context) (any, error) { return []int{1, 2}, nil })
	if err != nil || !reflect.DeepEqual(v, []int{1, 2}) {
		t.Fatalf("Remember compute = %#v, %v", v, err)
	}
	v, err = d.Remember(ctx, "k", func(context.Context) (any, error) { return nil, boom })
	if err != nil || !reflect.DeepEqual(v, []any{float64(1), float64(2)}) {
		t.Fatalf("Remember hit = %#v, %v", v, err)
	}

	v, err = d.Pull(ctx, "k", "D")
	if err != nil || !reflect.DeepEqual(v, []any{float64(1), float64(2)}) {
		t.Fatalf("Pull = %#v, %v", v, err)
	}
	if v, _ := d.Pull(ctx, "k", "D"); v != "D" {
		t.Fatalf("second Pull = %#v", v)
	}
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), nil)

	_, _ = d.Has(ctx, "k")
	_, _ = d.Set(ctx, "k", 1)
	_, _ = d.Get(ctx, "k", nil)
	_, _ = d.Get(ctx, "missing", nil)
	_, _ = d.Inc(ctx, "k", 1)
	_, _ = d.Dec(ctx, "k", 1)
	_, _ = d.Delete(ctx, "k")
	_, _ = d.Tag("T").Set(ctx, "t", 1)
	_, _ = d.ClearTag(ctx, "T")
	_, _ = d.Clear(ctx)

	var c Counters = d
	if c.ReadTimes() != 2 {
		t.Fatalf("ReadTimes = %d, want 2", c.ReadTimes())
	}
	if c.WriteTimes() != 6 {
		t.Fatalf("WriteTimes = %d, want 6", c.WriteTimes())
	}
}

func TestDecodeFailure(t *testing.T) {
	ctx := context.Background()
	mp := memory.New()
	h := &recHooks{}
	d := newTestDriver(t, mp, func(o *Options) {
		o.Hooks = h
		o.MaxDecode = 24
	})

	_, _ = mp.Set(ctx, "bad", []byte(codec.DefaultMarker+"{oops"), 0)
	_, _ = mp.Set(ctx, "big", []byte(strings.Repeat("x", 32)), 0)

	for _, k := range []string{"bad", "big"} {
		got, err := d.Get(ctx, k, "D")
		var se *StoreOperationError
		if !errors.As(err, &se) || got != "D" {
			t.Fatalf("Get(%s) = %#v, %v", k, got, err)
		}
	}
	if h.decodeErr != 2 {
		t.Fatalf("DecodeFailed fired %d times", h.decodeErr)
	}
	if _, err := d.Get(ctx, "big", nil); !errors.Is(err, codec.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestDisabledSerialize(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t, memory.New(), func(o *Options) { o.DisableSerialize = true })

	if _, err := d.Set(ctx, "m", map[string]int{"a": 1}); !errors.Is(err, codec.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	_, _ = d.Set(ctx, "n", 5)
	if got, _ := d.Get(ctx, "n", nil); got != "5" {
		t.Fatalf("Get = %#v", got)
	}
}

func TestOpenParsesTable(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, map[string]any{"host": "a b"}); err == nil {
		t.Fatalf("Open must reject malformed host")
	}
}

func TestNewSurfacesConnectionError(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxReconnectTimes = 1
	opts.Sleep = func(context.Context, time.Duration) error { return nil }
	opts.Dial = func(context.Context, rp.ClusterConfig) (pr.Provider, error) { return nil, errRefused }
	_, err := New(context.Background(), opts)
	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.Attempts != 2 {
		t.Fatalf("expected ConnectionError after 2 attempts, got %v", err)
	}
}

func TestNewRejectsBadDriverOptionsBeforeDialing(t *testing.T) {
	cases := []func(*Options){
		func(o *Options) { o.Expire = -time.Second },
		func(o *Options) { o.MaxDecode = -1 },
	}
	for i, mut := range cases {
		dials := 0
		opts := DefaultOptions()
		opts.Dial = func(context.Context, rp.ClusterConfig) (pr.Provider, error) {
			dials++
			return memory.New(), nil
		}
		mut(&opts)

		d, err := New(context.Background(), opts)
		var ce *ConfigurationError
		if !errors.As(err, &ce) || d != nil {
			t.Fatalf("case %d: expected *ConfigurationError, got %v", i, err)
		}
		if dials != 0 {
			t.Fatalf("case %d: dialed %d times before validation", i, dials)
		}
	}
}
