package util

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ValidateMimeType 按文件头识别 MIME 类型
// allowedTypes: 允许的 MIME 前缀，如 "video/", "audio/"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	mt, err := mimetype.DetectReader(reader)
	if err != nil {
		return "", err
	}

	mimeType := mt.String()
	for m := mt; m != nil; m = m.Parent() {
		for _, allowed := range allowedTypes {
			if strings.HasPrefix(m.String(), allowed) {
				return m.String(), nil
			}
		}
	}

	return mimeType, fmt.Errorf("%w: %s", ErrInvalidFileType, mimeType)
}

// IsVideo 检测是否为视频
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeVideo)
}

// IsAudio 检测是否为音频
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeAudio)
}

// NormalizeExt 返回小写扩展名，不在白名单中时返回 fallback
func NormalizeExt(filename string, allowed []string, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return ext
		}
	}
	return fallback
}
