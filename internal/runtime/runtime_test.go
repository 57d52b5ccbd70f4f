package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/padsense/vitals/internal/config"
	"github.com/padsense/vitals/internal/ingest"
	pebblestore "github.com/padsense/vitals/internal/storage/pebble"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestOpenCloseHealth(t *testing.T) {
	rt := newTestRuntime(t)
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestEndToEndIngest(t *testing.T) {
	rt := newTestRuntime(t)
	if _, err := rt.Registry().Ensure("alice", "Alice"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	p := 120
	r, err := rt.Ingest().IngestHinted(context.Background(), nil, ingest.RawReading{Pressure: &p}, ingest.Hints{Path: "alice"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if r.PatientID != "alice" || r.Pressure != 120 {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestAuthTokensWired(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.AuthTokens = map[string]string{"tok": "alice"}
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()
	if _, ok := rt.Authenticator().Authenticate(context.Background(), "tok"); !ok {
		t.Fatal("configured token not accepted")
	}
	if _, ok := rt.Authenticator().Authenticate(context.Background(), "nope"); ok {
		t.Fatal("unknown token accepted")
	}
}
