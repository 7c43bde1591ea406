package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestDiskGuard_BelowFloorRejects(t *testing.T) {
	g := NewDiskGuard(100, func(string) (*DiskUsage, error) {
		return &DiskUsage{Available: 50 * 1024 * 1024}, nil
	})

	ok, freeMB, err := g.Check("/")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 50.0, freeMB, 0.001)
}

func TestDiskGuard_AboveFloorAdmits(t *testing.T) {
	g := NewDiskGuard(100, func(string) (*DiskUsage, error) {
		return &DiskUsage{Available: 100 * 1024 * 1024}, nil
	})

	ok, freeMB, err := g.Check("/")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, freeMB, 0.001)
}

func TestDiskGuard_RereadsEveryCheck(t *testing.T) {
	free := uint64(500 * 1024 * 1024)
	g := NewDiskGuard(100, func(string) (*DiskUsage, error) {
		return &DiskUsage{Available: free}, nil
	})

	ok, _, _ := g.Check("/")
	require.True(t, ok)

	free = 10 * 1024 * 1024
	ok, _, _ = g.Check("/")
	assert.False(t, ok)
}

func TestDiskGuard_StatError(t *testing.T) {
	g := NewDiskGuard(100, func(string) (*DiskUsage, error) {
		return nil, errors.New("boom")
	})

	ok, _, err := g.Check("/")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCheckDiskSpace_RealFilesystem(t *testing.T) {
	usage, err := CheckDiskSpace(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, usage.Total)
	assert.LessOrEqual(t, usage.Available, usage.Total)
}

func TestUniqueScopeName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	name := UniqueScopeName("https://instagram.com/p/abc", now)

	assert.Len(t, strings.Split(name, "_")[0], 8)
	assert.True(t, strings.HasSuffix(name, "_1700000000"))
	assert.Equal(t, name, UniqueScopeName("https://instagram.com/p/abc", now))
	assert.NotEqual(t, name, UniqueScopeName("https://instagram.com/p/xyz", now))
}

func TestNewUniqueScope_SameURLSameSecondGetsDistinctDirs(t *testing.T) {
	fm := NewFileManager(t.TempDir(), nil)
	parent := filepath.Join(fm.BasePath(), "instagram")
	now := time.Unix(1700000000, 0)

	s1, err := fm.NewUniqueScope(parent, "https://instagram.com/p/abc", now)
	require.NoError(t, err)
	s2, err := fm.NewUniqueScope(parent, "https://instagram.com/p/abc", now)
	require.NoError(t, err)

	assert.NotEqual(t, s1.Dir(), s2.Dir())
	assert.DirExists(t, s1.Dir())
	assert.DirExists(t, s2.Dir())
}

func TestDirScope_CleanupRemovesEverything(t *testing.T) {
	fm := NewFileManager(t.TempDir(), nil)
	parent := filepath.Join(fm.BasePath(), "instagram")

	s, err := fm.NewUniqueScope(parent, "https://instagram.com/p/abc", time.Now())
	require.NoError(t, err)
	writeFile(t, filepath.Join(s.Dir(), "clip.mp4"), 10)
	writeFile(t, filepath.Join(s.Dir(), "clip.mp4.part"), 10)

	require.NoError(t, s.Cleanup())
	assert.NoDirExists(t, s.Dir())
	assert.DirExists(t, parent)

	// 第二次调用不报错
	assert.NoError(t, s.Cleanup())
}

func TestFileManager_FileExistsAndSize(t *testing.T) {
	fm := NewFileManager(t.TempDir(), nil)
	path := filepath.Join(fm.BasePath(), "a.mp4")

	assert.False(t, fm.FileExists(path))
	assert.False(t, fm.FileExists(fm.BasePath()))

	writeFile(t, path, 1234)
	assert.True(t, fm.FileExists(path))

	size, err := fm.GetFileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), size)

	require.NoError(t, fm.DeleteFile(path))
	assert.NoError(t, fm.DeleteFile(path))
}

func TestIsPartialFile(t *testing.T) {
	assert.True(t, IsPartialFile("a.mp4.part"))
	assert.True(t, IsPartialFile("a.mp4.ytdl"))
	assert.True(t, IsPartialFile("a.mp4.part-Frag12"))
	assert.False(t, IsPartialFile("a.mp4"))
}

func TestSecureFilename(t *testing.T) {
	cases := map[string]string{
		"My cool movie.mov":                  "My_cool_movie.mov",
		"../../../etc/passwd":                "etc_passwd",
		"i contain cool ümläuts.txt": "i_contain_cool_umlauts.txt",
		"..\\windows\\system32":              "windows_system32",
		"clip: part 1 | final?.mp4":          "clip_part_1__final.mp4",
		"":                                   DefaultFilename,
		"日本語":                 DefaultFilename,
	}
	for in, want := range cases {
		assert.Equal(t, want, SecureFilename(in), "input %q", in)
	}
}

func TestSecureFilename_TruncatesKeepingExtension(t *testing.T) {
	got := SecureFilename(strings.Repeat("a", 300) + ".mp4")
	assert.LessOrEqual(t, len(got), 200)
	assert.True(t, strings.HasSuffix(got, ".mp4"))
}
