package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/testutil"
	"yoi_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSequenceUnlocksNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1,
		testutil.Plain("Welcome"), testutil.Plain("Breathing"), testutil.Plain("Closing"))

	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[0].ID))
	assert.Equal(t, model.StatusLocked, env.status(t, user.ID, m.ID, s[1].ID))

	progress, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModuleInProgress, progress.Status)
	assert.Equal(t, 1, progress.CompletedCount)

	assert.Equal(t, model.StatusCompleted, env.status(t, user.ID, m.ID, s[0].ID))
	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[1].ID))
	assert.Equal(t, model.StatusLocked, env.status(t, user.ID, m.ID, s[2].ID))

	entry, err := env.progressRepo.Find(ctx, nil, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotNil(t, entry.CompletedAt)
}

func TestCompleteSequenceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1, testutil.Plain("One"), testutil.Plain("Two"))

	_, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)

	entries, err := env.progressRepo.ListForModule(ctx, user.ID, m.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[1].ID))
}

func TestCompleteSequenceNeverDowngradesNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1, testutil.Plain("One"), testutil.Plain("Two"))

	_, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[1].ID)
	require.NoError(t, err)

	// 重新完成第一个序列不会把第二个序列改回 unlocked
	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, env.status(t, user.ID, m.ID, s[1].ID))
}

func TestCompleteLastSequenceFinishesModule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1, testutil.Plain("Only"))

	progress, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModuleCompleted, progress.Status)
	assert.Equal(t, 1, progress.TotalSequences)
}

func TestModuleProgressWithUnknownSequenceType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1,
		testutil.Plain("Intro"), testutil.Plain("Practice"), testutil.Plain("Integration"))
	require.NoError(t, env.db.Model(&s[2]).Update("sequence_type", "box_breathing").Error)

	progress, err := env.progress.ModuleProgress(ctx, user.ID, m.ID)
	require.NoError(t, err)
	require.Len(t, progress.Sequences, 3)
	assert.Equal(t, model.MediaText, progress.Sequences[2].Media)
	assert.Equal(t, model.StatusLocked, progress.Sequences[2].Status)

	// 未知类型的序列仍可按顺序解锁
	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[2].ID))
}

func TestCompleteSequenceRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1,
		testutil.Plain("One"), testutil.Plain("Two"), testutil.Upload("Practice"))
	other, otherSeqs := testutil.CreateModule(t, env.db, "Other", 2, testutil.Plain("Elsewhere"))

	_, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[1].ID)
	assert.ErrorIs(t, err, util.ErrSequenceLocked)

	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[2].ID)
	assert.ErrorIs(t, err, util.ErrSequenceGated)

	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, otherSeqs[0].ID)
	assert.ErrorIs(t, err, util.ErrSequenceNotInModule)

	_, err = env.progress.CompleteSequence(ctx, user.ID, "missing", s[0].ID)
	assert.ErrorIs(t, err, util.ErrModuleNotFound)

	_, err = env.progress.CompleteSequence(ctx, user.ID, other.ID, "missing")
	assert.ErrorIs(t, err, util.ErrSequenceNotFound)

	_, err = env.progress.CompleteSequence(ctx, "", m.ID, s[0].ID)
	assert.ErrorIs(t, err, util.ErrMissingFields)

	entries, err := env.progressRepo.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompleteSequenceRecordsNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1, testutil.Plain("Welcome"), testutil.Plain("Two"))

	_, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)
	env.notifier.Wait()

	list, total, err := env.notifications.List(ctx, false, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	n := list[0]
	assert.Equal(t, model.NotificationStepCompleted, n.Type)
	assert.Equal(t, "learner@example.com completed \"Welcome\" in Breath", n.Message)
	assert.Equal(t, s[0].ID, n.SequenceID)
	assert.False(t, n.Read)
}

func TestSubmitVideoAwaitsReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fixedClock(time.UnixMilli(1700000000000))
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1,
		testutil.Plain("Intro"), testutil.Upload("Practice"), testutil.Plain("After"))

	_, err := env.progress.CompleteSequence(ctx, user.ID, m.ID, s[0].ID)
	require.NoError(t, err)

	result, err := env.progress.SubmitVideo(ctx, user.ID, m.ID, s[1].ID, videoUpload(4096))
	require.NoError(t, err)
	sub := result.Submission
	assert.Equal(t, model.SubmissionPending, sub.Status)
	require.NotNil(t, sub.DurationSeconds)
	assert.Equal(t, 90, *sub.DurationSeconds)
	assert.Equal(t, model.ModuleAwaiting, result.Progress.Status)

	key := strings.Join([]string{user.ID, m.ID, s[1].ID, "1700000000000.mp4"}, "/")
	assert.Equal(t, "/uploads/"+key, sub.VideoURL)
	_, err = os.Stat(filepath.Join(env.storageRoot, filepath.FromSlash(key)))
	assert.NoError(t, err)

	assert.Equal(t, model.StatusAwaitingResponse, env.status(t, user.ID, m.ID, s[1].ID))
	// 提交不会解锁下一个序列
	assert.Equal(t, model.StatusLocked, env.status(t, user.ID, m.ID, s[2].ID))

	_, err = env.progress.CompleteSequence(ctx, user.ID, m.ID, s[1].ID)
	assert.ErrorIs(t, err, util.ErrSequenceGated)
}

func TestSubmitVideoValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1,
		testutil.Upload("Practice"), testutil.Upload("Locked"), testutil.Plain("Text"))

	env.uploads.Probe = probeSeconds(30)
	_, err := env.progress.SubmitVideo(ctx, user.ID, m.ID, s[0].ID, videoUpload(2048))
	assert.ErrorIs(t, err, util.ErrVideoTooShort)

	env.uploads.Probe = probeSeconds(121)
	_, err = env.progress.SubmitVideo(ctx, user.ID, m.ID, s[0].ID, videoUpload(2048))
	assert.ErrorIs(t, err, util.ErrVideoTooLong)

	env.uploads.Probe = probeSeconds(60)
	text := []byte("definitely not a video file")
	_, err = env.progress.SubmitVideo(ctx, user.ID, m.ID, s[0].ID, MediaUpload{
		Filename: "notes.mp4", Size: int64(len(text)), Reader: bytes.NewReader(text),
	})
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	_, err = env.progress.SubmitVideo(ctx, user.ID, m.ID, s[0].ID, videoUpload(2<<20))
	assert.ErrorIs(t, err, util.ErrFileTooLarge)

	_, err = env.progress.SubmitVideo(ctx, user.ID, m.ID, s[1].ID, videoUpload(2048))
	assert.ErrorIs(t, err, util.ErrSequenceLocked)

	_, err = env.progress.SubmitVideo(ctx, user.ID, m.ID, s[2].ID, videoUpload(2048))
	assert.ErrorIs(t, err, util.ErrUploadNotRequired)

	// 校验失败时不写入任何记录
	count, err := env.submissions.CountByStatus(ctx, model.SubmissionPending)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[0].ID))
}

func TestSubmitVideoUsesSequenceWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1, testutil.Upload("Practice"))

	lo, hi := 10, 20
	require.NoError(t, env.db.Model(&s[0]).Updates(map[string]interface{}{
		"min_video_seconds": lo,
		"max_video_seconds": hi,
	}).Error)

	env.uploads.Probe = probeSeconds(15)
	_, err := env.progress.SubmitVideo(ctx, user.ID, m.ID, s[0].ID, videoUpload(2048))
	require.NoError(t, err)
}

func TestDashboardSummaries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	second, _ := testutil.CreateModule(t, env.db, "Second", 2, testutil.Plain("A"))
	first, s := testutil.CreateModule(t, env.db, "First", 1, testutil.Plain("One"), testutil.Plain("Two"))

	_, err := env.progress.CompleteSequence(ctx, user.ID, first.ID, s[0].ID)
	require.NoError(t, err)

	summaries, err := env.progress.Dashboard(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, first.ID, summaries[0].ModuleID)
	assert.Equal(t, model.ModuleInProgress, summaries[0].Status)
	assert.Equal(t, 1, summaries[0].CompletedCount)
	require.NotNil(t, summaries[0].CurrentSequenceID)
	assert.Equal(t, s[1].ID, *summaries[0].CurrentSequenceID)

	assert.Equal(t, second.ID, summaries[1].ModuleID)
	assert.Equal(t, model.ModuleNotStarted, summaries[1].Status)
	assert.NotNil(t, summaries[1].CurrentSequenceID)
}
