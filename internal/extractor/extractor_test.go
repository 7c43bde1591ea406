package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/config"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/storage"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/ytdlp"
)

// fakeFetcher 把模板中的 %(title)s / %(id)s / %(ext)s 替换后写一个文件
type fakeFetcher struct {
	mu      sync.Mutex
	reqs    []*ytdlp.FetchRequest
	err     error
	partial bool // 出错前先留下 .part 文件
}

func (f *fakeFetcher) Fetch(_ context.Context, req *ytdlp.FetchRequest) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	path := strings.NewReplacer("%(title)s", "clip", "%(id)s", "abc123", "%(ext)s", "mp4").Replace(req.OutputTemplate)
	if f.err != nil {
		if f.partial {
			if err := os.WriteFile(path+".part", []byte("da"), 0o644); err != nil {
				return "", err
			}
		}
		return "", f.err
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type namedExtractor string

func (n namedExtractor) Platform() string { return string(n) }
func (n namedExtractor) NewScope(string) (storage.Scope, error) {
	return nil, errors.New("not used")
}
func (n namedExtractor) Fetch(context.Context, string, storage.Scope) (*Artifact, error) {
	return nil, errors.New("not used")
}

func TestRegistry_FirstMatchWins(t *testing.T) {
	r := NewRegistry(
		Rule{Name: "first", Match: SubstringMatcher("video"), Extractor: namedExtractor("first")},
		Rule{Name: "second", Match: SubstringMatcher("video.com"), Extractor: namedExtractor("second")},
	)

	ext, err := r.Dispatch("https://video.com/abc")
	require.NoError(t, err)
	assert.Equal(t, "first", ext.Platform())
	assert.Equal(t, []string{"first", "second"}, r.Platforms())
}

func TestRegistry_NoMatch(t *testing.T) {
	r := NewRegistry(Rule{Name: "yt", Match: HostMatcher("youtube.com"), Extractor: namedExtractor("yt")})

	ext, err := r.Dispatch("https://vimeo.com/123")
	assert.Nil(t, ext)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestHostMatcher(t *testing.T) {
	yt := HostMatcher("youtube.com", "youtu.be")
	x := HostMatcher("twitter.com", "x.com")

	assert.True(t, yt("https://youtu.be/abc123"))
	assert.True(t, yt("https://www.youtube.com/watch?v=abc"))
	assert.True(t, yt("https://m.YouTube.com/watch?v=abc"))
	assert.True(t, yt("youtube.com/shorts/abc"))
	assert.False(t, yt("https://notyoutube.com/watch"))
	assert.False(t, yt("https://example.com/?u=youtube.com"))
	assert.False(t, yt(""))

	assert.True(t, x("https://x.com/user/status/1"))
	assert.True(t, x("https://mobile.twitter.com/user/status/1"))
	assert.False(t, x("https://netflix.com/title/1"))
}

func TestBuild_DefaultPlatformOrder(t *testing.T) {
	base := t.TempDir()
	files := storage.NewFileManager(base, nil)
	storageCfg := &config.StorageConfig{BasePath: base}

	platforms := config.DefaultPlatforms()
	platforms = append(platforms, config.PlatformConfig{Name: "vimeo", Domains: []string{"vimeo.com"}})

	r, err := Build(platforms, storageCfg, "", &fakeFetcher{}, files, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"youtube", "instagram", "facebook", "twitter"}, r.Platforms())

	for _, name := range r.Platforms() {
		assert.DirExists(t, filepath.Join(base, name))
	}

	cases := map[string]string{
		"https://youtu.be/abc123":                    "youtube",
		"https://www.instagram.com/reel/xyz/":        "instagram",
		"https://www.facebook.com/watch/?v=1":        "facebook",
		"https://fb.watch/abc/":                      "facebook",
		"https://twitter.com/user/status/1":          "twitter",
		"https://x.com/user/status/1":                "twitter",
	}
	for u, want := range cases {
		ext, err := r.Dispatch(u)
		require.NoError(t, err, u)
		assert.Equal(t, want, ext.Platform(), u)
	}

	_, err = r.Dispatch("https://vimeo.com/1")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestPlatformExtractor_UniqueScopeFetch(t *testing.T) {
	base := t.TempDir()
	files := storage.NewFileManager(base, nil)
	fetcher := &fakeFetcher{}
	cfg := config.PlatformConfig{Name: "instagram", OutputTemplate: "%(title)s.%(ext)s"}
	ext := NewPlatformExtractor(cfg, filepath.Join(base, "instagram"), "", fetcher, files, nil)

	scope, err := ext.NewScope("https://instagram.com/p/abc")
	require.NoError(t, err)
	assert.NotEqual(t, filepath.Join(base, "instagram"), scope.Dir())
	assert.Equal(t, filepath.Join(base, "instagram"), filepath.Dir(scope.Dir()))

	art, err := ext.Fetch(context.Background(), "https://instagram.com/p/abc", scope)
	require.NoError(t, err)
	assert.Equal(t, "instagram", art.Platform)
	assert.Equal(t, filepath.Join(scope.Dir(), "clip.mp4"), art.FilePath)
	assert.FileExists(t, art.FilePath)

	require.NoError(t, art.Scope.Cleanup())
	assert.NoDirExists(t, scope.Dir())
}

func TestPlatformExtractor_FacebookFetch(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "facebook")
	files := storage.NewFileManager(base, nil)
	fetcher := &fakeFetcher{}
	cfg := config.PlatformConfig{Name: "facebook", OutputTemplate: "%(id)s.%(ext)s", UseCookies: true}
	ext := NewPlatformExtractor(cfg, dir, "cookies.txt", fetcher, files, nil)

	scope, err := ext.NewScope("https://facebook.com/watch/?v=1")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(scope.Dir()))

	art, err := ext.Fetch(context.Background(), "https://facebook.com/watch/?v=1", scope)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scope.Dir(), "abc123.mp4"), art.FilePath)

	require.Len(t, fetcher.reqs, 1)
	assert.Equal(t, "cookies.txt", fetcher.reqs[0].CookieFile)
	assert.Equal(t, filepath.Join(scope.Dir(), "%(id)s.%(ext)s"), fetcher.reqs[0].OutputTemplate)

	require.NoError(t, art.Scope.Cleanup())
	assert.NoDirExists(t, scope.Dir())
	assert.DirExists(t, dir)
}

func TestPlatformExtractor_SameURLConcurrentRequestsAreIsolated(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "youtube")
	ext := NewPlatformExtractor(config.PlatformConfig{Name: "youtube", OutputTemplate: "%(title)s.%(ext)s"},
		dir, "", &fakeFetcher{}, storage.NewFileManager(base, nil), nil)
	const rawURL = "https://youtu.be/abc123"

	scopeA, err := ext.NewScope(rawURL)
	require.NoError(t, err)
	scopeB, err := ext.NewScope(rawURL)
	require.NoError(t, err)
	require.NotEqual(t, scopeA.Dir(), scopeB.Dir())

	artA, err := ext.Fetch(context.Background(), rawURL, scopeA)
	require.NoError(t, err)
	artB, err := ext.Fetch(context.Background(), rawURL, scopeB)
	require.NoError(t, err)
	require.NotEqual(t, artA.FilePath, artB.FilePath)

	require.NoError(t, scopeA.Cleanup())
	assert.NoFileExists(t, artA.FilePath)
	assert.FileExists(t, artB.FilePath)

	require.NoError(t, scopeB.Cleanup())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlatformExtractor_FailedFetchPartialsRemovedWithScope(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "youtube")
	fetcher := &fakeFetcher{err: ytdlp.ErrYTDLPFailed, partial: true}
	ext := NewPlatformExtractor(config.PlatformConfig{Name: "youtube", OutputTemplate: "%(title)s.%(ext)s"},
		dir, "", fetcher, storage.NewFileManager(base, nil), nil)

	scope, err := ext.NewScope("https://youtu.be/abc123")
	require.NoError(t, err)

	_, err = ext.Fetch(context.Background(), "https://youtu.be/abc123", scope)
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(scope.Dir(), "clip.mp4.part"))

	require.NoError(t, scope.Cleanup())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlatformExtractor_CookiesDisabled(t *testing.T) {
	base := t.TempDir()
	fetcher := &fakeFetcher{}
	cfg := config.PlatformConfig{Name: "twitter", OutputTemplate: "%(title)s.%(ext)s"}
	ext := NewPlatformExtractor(cfg, filepath.Join(base, "twitter"), "cookies.txt", fetcher, storage.NewFileManager(base, nil), nil)

	scope, err := ext.NewScope("https://x.com/a/status/1")
	require.NoError(t, err)
	_, err = ext.Fetch(context.Background(), "https://x.com/a/status/1", scope)
	require.NoError(t, err)

	require.Len(t, fetcher.reqs, 1)
	assert.Empty(t, fetcher.reqs[0].CookieFile)
}

func TestPlatformExtractor_FetchError(t *testing.T) {
	base := t.TempDir()
	fetcher := &fakeFetcher{err: ytdlp.ErrVideoPrivate}
	cfg := config.PlatformConfig{Name: "instagram", OutputTemplate: "%(title)s.%(ext)s"}
	ext := NewPlatformExtractor(cfg, filepath.Join(base, "instagram"), "", fetcher, storage.NewFileManager(base, nil), nil)

	scope, err := ext.NewScope("https://instagram.com/p/abc")
	require.NoError(t, err)

	art, err := ext.Fetch(context.Background(), "https://instagram.com/p/abc", scope)
	assert.Nil(t, art)
	assert.ErrorIs(t, err, ytdlp.ErrVideoPrivate)
}
