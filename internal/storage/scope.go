package storage

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scope 单个请求独占的存储范围, 请求结束时整体清理
type Scope interface {
	// Dir 下载输出目录
	Dir() string
	// Cleanup 清理作用域, 多次调用只生效一次
	Cleanup() error
}

// NewUniqueScope 在 parent 下创建本次请求专用的目录
// 目录名: {md5(url)前8位}_{unix时间戳}, 冲突时追加随机后缀.
// 同一 URL 的并发请求也会拿到不同目录, yt-dlp 的 .part 等临时文件随目录一起删除
func (m *FileManager) NewUniqueScope(parent, rawURL string, now time.Time) (Scope, error) {
	if err := m.EnsureDir(parent); err != nil {
		return nil, fmt.Errorf("failed to create platform directory: %w", err)
	}

	name := UniqueScopeName(rawURL, now)
	dir := filepath.Join(parent, name)
	err := os.Mkdir(dir, 0o755)
	if errors.Is(err, fs.ErrExist) {
		dir = filepath.Join(parent, name+"_"+uuid.NewString()[:8])
		err = os.Mkdir(dir, 0o755)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create scope directory: %w", err)
	}

	m.logger.Debug("scope created", zap.String("dir", dir))
	return &dirScope{dir: dir, fm: m}, nil
}

// UniqueScopeName 根据 URL 和时间生成目录名
func UniqueScopeName(rawURL string, now time.Time) string {
	sum := md5.Sum([]byte(rawURL))
	return fmt.Sprintf("%s_%d", hex.EncodeToString(sum[:])[:8], now.Unix())
}

type dirScope struct {
	dir  string
	fm   *FileManager
	once sync.Once
	err  error
}

func (s *dirScope) Dir() string { return s.dir }

func (s *dirScope) Cleanup() error {
	s.once.Do(func() {
		s.err = s.fm.DeleteDir(s.dir)
	})
	return s.err
}

// IsPartialFile 是否为 yt-dlp 未完成下载留下的临时文件
func IsPartialFile(name string) bool {
	return strings.HasSuffix(name, ".part") ||
		strings.HasSuffix(name, ".ytdl") ||
		strings.Contains(name, ".part-Frag")
}
