package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist/snapshot"
)

const testCatalog = `id,name,artist,album
t1,Sunny Upbeat Morning,The Larks,Daybreak
t2,Midnight Rain,Grey Harbor,Fog
t3,Heavy Iron Riffs,Forge,Anvil
t4,Slow Velvet Lullaby,Nina Quill,Cradle
`

func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("VIBELIST_ENCODER__BACKEND", "hashing")
	t.Setenv("VIBELIST_ENCODER__HASHING__DIMENSION", "128")
	t.Setenv("VIBELIST_MUSIC_SERVICE__BACKEND", "memory")
	t.Setenv("VIBELIST_LOGGING__LEVEL", "error")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracks.csv"), []byte(testCatalog), 0o600))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestBuildRecommendInspect(t *testing.T) {
	dir := testEnv(t)
	snap := filepath.Join(dir, "snap")

	_, err := run(t, "build", "--catalog", "tracks.csv", "--out", snap, "--quiet", "--compression", "lz4")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(snap, snapshot.ManifestName))
	assert.FileExists(t, filepath.Join(snap, "catalog.jsonl.lz4"))

	out, err := run(t, "recommend", "--snapshot", snap, "--json", "-n", "2", "sunny", "upbeat", "morning")
	require.NoError(t, err)

	var ids []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var line recommendationLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		ids = append(ids, line.ID)
	}
	require.Len(t, ids, 2)
	assert.Equal(t, "t1", ids[0])

	out, err = run(t, "recommend", "--snapshot", snap, "--json", "-n", "10", "-x", "t1,t2", "sunny upbeat morning")
	require.NoError(t, err)
	assert.NotContains(t, out, `"t1"`)
	assert.NotContains(t, out, `"t2"`)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	out, err = run(t, "inspect", "--snapshot", snap, "--load")
	require.NoError(t, err)
	assert.Contains(t, out, "hashing-v1-128")
	assert.Contains(t, out, "loaded 4 rows of dimension 128")
}

func TestRecommendTable(t *testing.T) {
	dir := testEnv(t)
	snap := filepath.Join(dir, "snap")

	_, err := run(t, "build", "--catalog", "tracks.csv", "--out", snap, "--quiet", "--format", "csv")
	require.NoError(t, err)

	out, err := run(t, "recommend", "--snapshot", snap, "-n", "1", "midnight rain")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[1], "t2")
}

func TestRecommendMissingSnapshot(t *testing.T) {
	dir := testEnv(t)

	_, err := run(t, "recommend", "--snapshot", filepath.Join(dir, "nope"), "anything")
	require.Error(t, err)
}

func TestParseStoreURI(t *testing.T) {
	tests := []struct {
		uri                    string
		scheme, bucket, prefix string
		wantErr                bool
	}{
		{uri: "./snapshot", prefix: "./snapshot"},
		{uri: "file:///var/lib/vibelist", scheme: "file", prefix: "/var/lib/vibelist"},
		{uri: "s3://music/snapshots/2026-10-01", scheme: "s3", bucket: "music", prefix: "snapshots/2026-10-01"},
		{uri: "gs://music", scheme: "gs", bucket: "music"},
		{uri: "minio://music/v1/", scheme: "minio", bucket: "music", prefix: "v1/"},
		{uri: "s3:///no-bucket", wantErr: true},
		{uri: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			scheme, bucket, prefix, err := parseStoreURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}
