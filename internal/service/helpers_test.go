package service

import (
	"bytes"
	"context"
	"testing"
	"time"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/testutil"
	"yoi_portal_backend/internal/util"

	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	storageRoot string

	users         *repository.UserRepository
	modules       *repository.ModuleRepository
	sequences     *repository.SequenceRepository
	progressRepo  *repository.ProgressRepository
	submissions   *repository.SubmissionRepository
	responses     *repository.InstructorResponseRepository
	notifications *repository.NotificationRepository

	uploads  *UploadService
	access   *AccessService
	notifier *NotificationService
	progress *ProgressService
	review   *ReviewService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	env := &testEnv{
		db:            db,
		storageRoot:   t.TempDir(),
		users:         repository.NewUserRepository(db),
		modules:       repository.NewModuleRepository(db),
		sequences:     repository.NewSequenceRepository(db),
		progressRepo:  repository.NewProgressRepository(db),
		submissions:   repository.NewSubmissionRepository(db),
		responses:     repository.NewInstructorResponseRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}

	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: env.storageRoot}}}
	env.uploads = NewUploadService(&config.UploadConfig{
		MaxAssignmentBytes: 1 << 20,
		MaxResponseBytes:   2 << 20,
		MaxVoiceBytes:      1 << 20,
		MaxAvatarBytes:     1 << 20,
		DefaultMinSeconds:  60,
		DefaultMaxSeconds:  120,
		ProbeDuration:      true,
	}, storage)
	env.uploads.Probe = probeSeconds(90)

	env.access = NewAccessService(env.users)
	env.notifier = NewNotificationService(config.NotificationConfig{}, env.notifications, env.users, env.modules, env.sequences, env.submissions)
	env.progress = NewProgressService(db, env.progressRepo, env.modules, env.sequences, env.submissions, env.uploads, env.notifier)
	env.review = NewReviewService(db, nil, env.access, env.progressRepo, env.sequences, env.submissions, env.responses, env.notifier)

	// 数据库关闭前等待后台通知写完
	t.Cleanup(env.notifier.Wait)
	return env
}

func probeSeconds(seconds float64) ProbeFunc {
	return func(path string) (*util.VideoInfo, error) {
		return &util.VideoInfo{Duration: seconds, Format: "mp4"}, nil
	}
}

// mp4Bytes 带 ftyp 文件头的假 mp4 内容
func mp4Bytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '2'})
	return b
}

func videoUpload(n int) MediaUpload {
	data := mp4Bytes(n)
	return MediaUpload{Filename: "practice.MP4", Size: int64(len(data)), Reader: bytes.NewReader(data)}
}

func (e *testEnv) status(t *testing.T, userID, moduleID, sequenceID string) model.SequenceStatus {
	t.Helper()
	_, status, err := e.progress.SequenceStatus(context.Background(), userID, moduleID, sequenceID)
	if err != nil {
		t.Fatalf("SequenceStatus() failed: %v", err)
	}
	return status
}

func (e *testEnv) fixedClock(at time.Time) {
	now := func() time.Time { return at }
	e.progress.now = now
	e.review.now = now
	e.uploads.now = now
}
