package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// FileManager 文件管理器
type FileManager struct {
	basePath string
	logger   *zap.Logger
}

// NewFileManager 创建文件管理器
func NewFileManager(basePath string, logger *zap.Logger) *FileManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileManager{
		basePath: basePath,
		logger:   logger.Named("filemanager"),
	}
}

// BasePath 下载根目录
func (m *FileManager) BasePath() string {
	return m.basePath
}

// GetFileSize 获取文件大小
func (m *FileManager) GetFileSize(filePath string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}

// FileExists 检查文件是否存在(目录不算)
func (m *FileManager) FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && info.Mode().IsRegular()
}

// DeleteFile 删除文件
func (m *FileManager) DeleteFile(filePath string) error {
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	m.logger.Debug("deleted file", zap.String("path", filePath))
	return nil
}

// DeleteDir 删除目录及其内容
func (m *FileManager) DeleteDir(dirPath string) error {
	if err := os.RemoveAll(dirPath); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	m.logger.Debug("deleted directory", zap.String("path", dirPath))
	return nil
}

// EnsureDir 确保目录存在
func (m *FileManager) EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// DiskUsage 磁盘使用情况
type DiskUsage struct {
	Total       uint64  // 总空间(字节)
	Available   uint64  // 可用空间(字节)
	Used        uint64  // 已用空间(字节)
	UsedPercent float64 // 使用百分比
}

// FreeMB 可用空间(MB)
func (u *DiskUsage) FreeMB() float64 {
	return float64(u.Available) / (1024 * 1024)
}

// CheckDiskSpace 检查 path 所在文件系统的磁盘空间
func CheckDiskSpace(path string) (*DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	total := stat.Blocks * uint64(stat.Bsize)
	available := stat.Bavail * uint64(stat.Bsize)
	used := total - available

	var usedPercent float64
	if total > 0 {
		usedPercent = float64(used) / float64(total) * 100
	}

	return &DiskUsage{
		Total:       total,
		Available:   available,
		Used:        used,
		UsedPercent: usedPercent,
	}, nil
}
