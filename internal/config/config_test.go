package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  addr: ":9090"
  timeout: 3s
  cors: ["*"]
  metadataHeaders: [authorization]
schema:
  paths: [schema.graphql, extra.graphql]
  watch: true
data:
  path: data.yaml
engine:
  concurrency: 8
log:
  level: debug
`))
	require.NoError(t, err)

	want := Default()
	want.Server.Addr = ":9090"
	want.Server.Timeout = 3 * time.Second
	want.Server.CORS = []string{"*"}
	want.Server.MetadataHeaders = []string{"authorization"}
	want.Schema = SchemaConfig{Paths: []string{"schema.graphql", "extra.graphql"}, Watch: true}
	want.Data.Path = "data.yaml"
	want.Engine.Concurrency = 8
	want.Log.Level = "debug"

	// Pattern: Result comparison
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"bad yaml", "server: [", "parse config"},
		{"empty addr", `server: {addr: ""}`, "server.addr is required"},
		{"zero concurrency", `engine: {concurrency: 0}`, "engine.concurrency must be at least 1"},
		{"negative cache", `engine: {cacheSize: -1}`, "engine.cacheSize must not be negative"},
		{"log level", `log: {level: loud}`, `log.level "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gqlengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  addr: \":9100\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
	require.Equal(t, ":8080", cfg.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
