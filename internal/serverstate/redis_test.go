package serverstate

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	rs, err := NewRedisStore(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer func() { _ = rs.Close() }()

	prev := current()
	UseStore(rs)
	defer UseStore(prev)

	if got := GetState(); got != StatusNotReady {
		t.Fatalf("initial state = %q; want %q", got, StatusNotReady)
	}
	SetState(StatusReady)
	if got := GetState(); got != StatusReady {
		t.Fatalf("state after SetState = %q; want %q", got, StatusReady)
	}
	StartDrain()
	if !IsDraining() {
		t.Fatalf("IsDraining = false; want true")
	}

	// A second replica sees the persisted state.
	rs2, err := NewRedisStore(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer func() { _ = rs2.Close() }()
	if st := rs2.Load(); st.Status != StatusDraining || !st.Draining {
		t.Fatalf("persisted state = %#v", st)
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisStore(context.Background(), addr); err == nil {
		t.Fatalf("expected ping error")
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("rediss://user:pw@h1:6379,h2:6379/3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(opts.Addrs) != 2 || opts.DB != 3 || opts.Username != "user" || opts.Password != "pw" || opts.TLSConfig == nil {
		t.Fatalf("opts %+v", opts)
	}
	opts, err = parseRedisURL("redis-sentinel://s1:26379/mymaster?db=2&sentinel_password=sp")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.MasterName != "mymaster" || opts.DB != 2 || opts.SentinelPassword != "sp" || opts.TLSConfig != nil {
		t.Fatalf("opts %+v", opts)
	}
	if _, err := parseRedisURL("redis://h:1/abc"); err == nil {
		t.Fatalf("expected invalid db error")
	}
	if _, err := parseRedisURL("memcache://h:1"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
