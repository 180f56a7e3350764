package util

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// VideoInfo 存储视频信息
type VideoInfo struct {
	Duration float64 `json:"duration"` // 视频时长（秒）
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Size     int64   `json:"size"`
}

// Seconds 四舍五入后的整秒时长
func (v *VideoInfo) Seconds() int {
	return int(math.Round(v.Duration))
}

// GetVideoInfo 使用ffmpeg-go库获取视频信息
func GetVideoInfo(videoPath string) (*VideoInfo, error) {
	fileInfo, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}

	jsonOutput, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}

	return parseProbe(jsonOutput, fileInfo.Size())
}

func parseProbe(jsonOutput string, fallbackSize int64) (*VideoInfo, error) {
	var result struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			Size     string `json:"size"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}

	if err := json.Unmarshal([]byte(jsonOutput), &result); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	var width, height int
	for _, stream := range result.Streams {
		if stream.CodecType == "video" {
			width = stream.Width
			height = stream.Height
			break
		}
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", result.Format.Duration, err)
	}

	size, err := strconv.ParseInt(result.Format.Size, 10, 64)
	if err != nil {
		size = fallbackSize
	}

	format := "unknown"
	if parts := strings.Split(result.Format.Format, ","); len(parts) > 0 && parts[0] != "" {
		format = parts[0]
	}

	return &VideoInfo{
		Duration: duration,
		Width:    width,
		Height:   height,
		Format:   format,
		Size:     size,
	}, nil
}
