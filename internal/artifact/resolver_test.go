package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func touch(t *testing.T, dir string, rel string) string {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	return p
}

func ptr(s string) *string { return &s }

func TestResolvePathWins(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "sub/CR123.png")
	touch(t, dir, "CR123.png")

	r := New(dir, "http://img", nil)
	got, ok := r.Resolve(ptr("sub/CR123.png"), "CR123")
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = r.Resolve(ptr("/sub/CR123.png"), "CR123")
	require.True(t, ok)
	assert.Equal(t, want, got)

	got, ok = r.Resolve(ptr(`\sub\CR123.png`), "CR123")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestResolveBasename(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "watch.webp")

	got, ok := New(dir, "", nil).Resolve(ptr("catalog/2024/watch.webp"), "CR1")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestResolveByID(t *testing.T) {
	dir := t.TempDir()
	jpg := touch(t, dir, "CR123.jpg")
	r := New(dir, "", nil)

	got, ok := r.Resolve(nil, "CR123")
	require.True(t, ok)
	assert.Equal(t, jpg, got)

	got, ok = r.Resolve(ptr(""), "CR123")
	require.True(t, ok)
	assert.Equal(t, jpg, got)

	// the reference extension restricts the id fallback
	_, ok = r.Resolve(ptr("elsewhere/CR123.png"), "CR123")
	assert.False(t, ok)

	got, ok = r.Resolve(ptr("elsewhere/photo.jpg"), "CR123")
	require.True(t, ok)
	assert.Equal(t, jpg, got)

	png := touch(t, dir, "CR123.png")
	got, ok = r.Resolve(nil, "CR123")
	require.True(t, ok)
	assert.Equal(t, png, got)
}

func TestResolveMissLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(t.TempDir(), "", zap.New(core))

	_, ok := r.Resolve(ptr("missing/x.png"), "ZZZ")
	assert.False(t, ok)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "ZZZ", fields["product_id"])
	assert.Equal(t, "missing/x.png", fields["artifact_uri"])
}

func TestResolveSkipsDirectoriesAndEscapes(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "CR1.png"), 0o755))
	touch(t, root, "secret.png")

	r := New(dir, "", nil)
	_, ok := r.Resolve(nil, "CR1")
	assert.False(t, ok)

	_, ok = r.Resolve(ptr("../secret.png"), "none")
	assert.False(t, ok)
}

func TestBuildURL(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"http://127.0.0.1:9000", "/data/watches/CR1.png", "http://127.0.0.1:9000/CR1.png"},
		{"http://127.0.0.1:9000/", "/data/watches/CR1.png", "http://127.0.0.1:9000/CR1.png"},
		{"https://cdn.example.com/img//", "CR1.jpg", "https://cdn.example.com/img/CR1.jpg"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, New("", tc.base, nil).BuildURL(tc.path))
	}
	assert.Equal(t, "http://a/b", JoinURL("http://a/", "/b"))
}

func TestMarkdown(t *testing.T) {
	assert.Equal(t, "Tank ![Tank](http://img/CR1.png)", Markdown("Tank", "http://img/CR1.png"))
}
