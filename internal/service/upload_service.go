package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/util"
	"yoi_portal_backend/pkg/logger"

	"go.uber.org/zap"
)

// UploadKind 决定大小上限和允许的 MIME
type UploadKind string

const (
	UploadAssignment UploadKind = "assignment"
	UploadResponse   UploadKind = "response"
	UploadVoice      UploadKind = "voice"
	UploadAvatar     UploadKind = "avatar"
)

// sniffLen mimetype 识别所需的文件头长度
const sniffLen = 3072

// MediaUpload 一次上传的文件及客户端上报的时长
type MediaUpload struct {
	Filename        string
	Size            int64
	Reader          io.Reader
	ReportedSeconds int
}

// StoredMedia 上传结果
type StoredMedia struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Seconds     int    `json:"durationSeconds"`
}

// ProbeFunc 读取本地文件的媒体信息
type ProbeFunc func(path string) (*util.VideoInfo, error)

type UploadService struct {
	Config  *config.UploadConfig
	Storage *StorageService
	Probe   ProbeFunc
	now     func() time.Time
}

func NewUploadService(cfg *config.UploadConfig, storage *StorageService) *UploadService {
	return &UploadService{
		Config:  cfg,
		Storage: storage,
		Probe:   util.GetVideoInfo,
		now:     time.Now,
	}
}

// MaxBytes 各类上传的大小上限
func (s *UploadService) MaxBytes(kind UploadKind) int64 {
	switch kind {
	case UploadResponse:
		return s.Config.MaxResponseBytes
	case UploadVoice:
		return s.Config.MaxVoiceBytes
	case UploadAvatar:
		return s.Config.MaxAvatarBytes
	}
	return s.Config.MaxAssignmentBytes
}

func allowedMime(kind UploadKind) []string {
	switch kind {
	case UploadAssignment:
		return []string{util.MimeVideo}
	case UploadVoice:
		return []string{util.MimeAudio, "video/webm"}
	case UploadAvatar:
		return []string{util.MimeImage}
	}
	return []string{util.MimeVideo, util.MimeAudio}
}

// CheckSize 超过上限返回 ErrFileTooLarge
func (s *UploadService) CheckSize(kind UploadKind, size int64) error {
	if size <= 0 {
		return util.ErrMissingFields
	}
	if limit := s.MaxBytes(kind); limit > 0 && size > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", util.ErrFileTooLarge, size, limit)
	}
	return nil
}

// ValidateDuration 时长必须在序列配置的窗口内
func ValidateDuration(seq *model.Sequence, seconds, defMin, defMax int) error {
	lo, hi := seq.DurationWindow(defMin, defMax)
	if seconds < lo {
		return fmt.Errorf("%w: %ds, minimum %ds", util.ErrVideoTooShort, seconds, lo)
	}
	if hi > 0 && seconds > hi {
		return fmt.Errorf("%w: %ds, maximum %ds", util.ErrVideoTooLong, seconds, hi)
	}
	return nil
}

// sniff 读取文件头识别类型，返回可重新读取完整内容的 reader
func sniff(r io.Reader, allowed []string) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	mimeType, err := util.ValidateMimeType(bytes.NewReader(head), allowed)
	if err != nil {
		return mimeType, nil, err
	}
	return mimeType, io.MultiReader(bytes.NewReader(head), r), nil
}

// spool 写入临时文件供 ffprobe 读取
func spool(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "yoi-upload-*")
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, r); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// measure 优先使用服务端探测的时长，探测不可用时使用客户端上报值
func (s *UploadService) measure(path string, reported int) (int, error) {
	if s.Config.ProbeDuration && s.Probe != nil {
		info, err := s.Probe(path)
		if err == nil {
			return info.Seconds(), nil
		}
		logger.Log.Warn("Duration probe failed, using reported duration",
			zap.Int("reported_seconds", reported),
			zap.Error(err))
	}
	if reported <= 0 {
		return 0, fmt.Errorf("%w: duration_seconds", util.ErrMissingFields)
	}
	return reported, nil
}

// SaveAssignment 校验并保存学员作业视频，校验失败时不保存任何内容
func (s *UploadService) SaveAssignment(ctx context.Context, userID string, seq *model.Sequence, in MediaUpload) (*StoredMedia, error) {
	if err := s.CheckSize(UploadAssignment, in.Size); err != nil {
		return nil, err
	}
	mimeType, r, err := sniff(in.Reader, allowedMime(UploadAssignment))
	if err != nil {
		return nil, err
	}

	tmp, err := spool(io.LimitReader(r, s.MaxBytes(UploadAssignment)+1))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	seconds, err := s.measure(tmp, in.ReportedSeconds)
	if err != nil {
		return nil, err
	}
	if err := ValidateDuration(seq, seconds, s.Config.DefaultMinSeconds, s.Config.DefaultMaxSeconds); err != nil {
		return nil, err
	}

	ext := util.NormalizeExt(in.Filename, util.AllowedVideoExtensions, ".mp4")
	key := ObjectKey("", userID, seq.ModuleID, seq.ID, ext, s.now())
	url, err := s.Storage.UploadFile(ctx, key, tmp, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store assignment: %w", err)
	}
	return &StoredMedia{URL: url, Key: key, ContentType: mimeType, Seconds: seconds}, nil
}

// SaveResponse 保存导师回应的音视频
func (s *UploadService) SaveResponse(ctx context.Context, instructorID, userID, moduleID, sequenceID string, in MediaUpload) (*StoredMedia, error) {
	if err := s.CheckSize(UploadResponse, in.Size); err != nil {
		return nil, err
	}
	mimeType, r, err := sniff(in.Reader, allowedMime(UploadResponse))
	if err != nil {
		return nil, err
	}

	allowedExt := util.AllowedVideoExtensions
	fallback := ".mp4"
	if util.IsAudio(mimeType) {
		allowedExt, fallback = util.AllowedAudioExtensions, ".mp3"
	}
	ext := util.NormalizeExt(in.Filename, allowedExt, fallback)
	key := ObjectKey("responses", userID, moduleID, sequenceID, ext, s.now())
	url, err := s.Storage.Upload(ctx, key, r, in.Size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}
	logger.Log.Info("Instructor response media stored",
		zap.String("instructor_id", instructorID),
		zap.String("key", key))
	return &StoredMedia{URL: url, Key: key, ContentType: mimeType}, nil
}

// SaveVoice 保存语音反思
func (s *UploadService) SaveVoice(ctx context.Context, userID string, in MediaUpload) (*StoredMedia, error) {
	if err := s.CheckSize(UploadVoice, in.Size); err != nil {
		return nil, err
	}
	if in.ReportedSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration_seconds", util.ErrMissingFields)
	}
	mimeType, r, err := sniff(in.Reader, allowedMime(UploadVoice))
	if err != nil {
		return nil, err
	}
	ext := util.NormalizeExt(in.Filename, util.AllowedAudioExtensions, ".webm")
	key := ObjectKey("reflections", userID, "", "", ext, s.now())
	url, err := s.Storage.Upload(ctx, key, r, in.Size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store voice reflection: %w", err)
	}
	return &StoredMedia{URL: url, Key: key, ContentType: mimeType, Seconds: in.ReportedSeconds}, nil
}

// SaveAvatar 保存头像图片，存储在 avatars/<user> 下
func (s *UploadService) SaveAvatar(ctx context.Context, userID string, in MediaUpload) (*StoredMedia, error) {
	if err := s.CheckSize(UploadAvatar, in.Size); err != nil {
		return nil, err
	}
	mimeType, r, err := sniff(in.Reader, allowedMime(UploadAvatar))
	if err != nil {
		return nil, err
	}
	ext := util.NormalizeExt(in.Filename, util.AllowedImageExtensions, ".png")
	key := ObjectKey("avatars", userID, "", "", ext, s.now())
	url, err := s.Storage.Upload(ctx, key, r, in.Size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}
	return &StoredMedia{URL: url, Key: key, ContentType: mimeType}, nil
}
