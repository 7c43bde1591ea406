package ytdlp

import (
	"errors"
	"strings"
)

var (
	// 视频相关错误
	ErrVideoNotFound  = errors.New("video not found")
	ErrVideoPrivate   = errors.New("video is private")
	ErrVideoDeleted   = errors.New("video has been deleted")
	ErrGeoRestricted  = errors.New("video is geo-restricted")
	ErrAgeRestricted  = errors.New("video is age-restricted")
	ErrLoginRequired  = errors.New("login required")
	ErrCopyrightClaim = errors.New("video removed due to copyright claim")

	// 系统相关错误
	ErrTimeout       = errors.New("download timeout")
	ErrYTDLPNotFound = errors.New("yt-dlp binary not found")
	ErrYTDLPFailed   = errors.New("yt-dlp execution failed")
	ErrNoOutput      = errors.New("yt-dlp reported no output file")
)

// MapError 将 yt-dlp 的错误输出映射到具体错误
func MapError(stderr string) error {
	lower := strings.ToLower(stderr)

	switch {
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "unsupported url"):
		return ErrVideoNotFound
	case strings.Contains(lower, "private video"):
		return ErrVideoPrivate
	case strings.Contains(lower, "has been deleted"), strings.Contains(lower, "has been removed"):
		return ErrVideoDeleted
	case strings.Contains(lower, "not available in your country"):
		return ErrGeoRestricted
	case strings.Contains(lower, "age-restricted"), strings.Contains(lower, "confirm your age"):
		return ErrAgeRestricted
	case strings.Contains(lower, "login required"), strings.Contains(lower, "log in"), strings.Contains(lower, "sign in"):
		return ErrLoginRequired
	case strings.Contains(lower, "copyright"):
		return ErrCopyrightClaim
	case strings.Contains(lower, "executable file not found"), strings.Contains(lower, "no such file"):
		return ErrYTDLPNotFound
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "timeout"):
		return ErrTimeout
	default:
		return ErrYTDLPFailed
	}
}

// lastErrorLine 取 stderr 中最后一条 ERROR 信息
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if len(lines) > 0 {
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return ""
}
