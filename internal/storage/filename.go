package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultFilename 清理后为空时使用的文件名
const DefaultFilename = "video.mp4"

const maxFilenameLen = 200

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename 清理文件名, 只保留 ASCII 字母数字和 _ . -
// 路径分隔符变为下划线, 去掉首尾的 . 和 _, 不会产生路径穿越
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		if r == '/' || r == '\\' {
			return ' '
		}
		return r
	}, name)

	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if len(name) > maxFilenameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxFilenameLen {
			ext = ""
		}
		name = strings.Trim(name[:maxFilenameLen-len(ext)], "._") + ext
	}
	if name == "" {
		return DefaultFilename
	}
	return name
}
