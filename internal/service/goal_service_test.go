package service

import (
	"bytes"
	"context"
	"testing"
	"time"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/testutil"
	"yoi_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeGoals() []GoalInput {
	return []GoalInput{
		{GoalText: "Sit every morning", SmallAction: "Set an alarm"},
		{GoalText: "Walk after lunch", SmallAction: "Block the calendar"},
		{GoalText: "Journal weekly", SmallAction: " Buy a notebook "},
	}
}

func TestSetGoalsCompletesSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goals := NewGoalService(repository.NewGoalRepository(env.db), env.progress)
	submitted := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	goals.now = func() time.Time { return submitted }

	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Intentions", 1,
		testutil.SeqSpec{Title: "Goals", Type: model.SequenceGoalSetting}, testutil.Plain("Next"))

	saved, progress, err := goals.SetGoals(ctx, user.ID, SetGoalsRequest{
		ModuleID: m.ID, SequenceID: s[0].ID, Goals: threeGoals(),
	})
	require.NoError(t, err)
	require.Len(t, saved, GoalCount)
	assert.Equal(t, "Buy a notebook", saved[2].SmallAction)
	assert.Equal(t, time.Date(2024, 5, 29, 0, 0, 0, 0, time.UTC), saved[0].TargetDate.UTC())
	assert.Equal(t, 1, progress.CompletedCount)
	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[1].ID))

	list, err := goals.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, GoalCount)

	notes := "two sits so far"
	updated, err := goals.UpdateGoal(ctx, user.ID, list[0].ID, UpdateGoalRequest{Status: model.GoalAbandoned, ProgressNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, model.GoalAbandoned, updated.Status)

	list, err = goals.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, GoalCount-1)
}

func TestSetGoalsRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goals := NewGoalService(repository.NewGoalRepository(env.db), env.progress)
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Intentions", 1,
		testutil.Plain("Intro"), testutil.SeqSpec{Title: "Goals", Type: model.SequenceGoalSetting})

	_, _, err := goals.SetGoals(ctx, user.ID, SetGoalsRequest{ModuleID: m.ID, SequenceID: s[0].ID, Goals: threeGoals()})
	assert.ErrorIs(t, err, util.ErrWrongSequenceType)

	_, _, err = goals.SetGoals(ctx, user.ID, SetGoalsRequest{ModuleID: m.ID, SequenceID: s[1].ID, Goals: threeGoals()})
	assert.ErrorIs(t, err, util.ErrSequenceLocked)

	_, _, err = goals.SetGoals(ctx, user.ID, SetGoalsRequest{ModuleID: m.ID, SequenceID: s[1].ID, Goals: threeGoals()[:2]})
	assert.ErrorIs(t, err, util.ErrMissingFields)

	list, err := goals.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSetGoalsSavesOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goals := NewGoalService(repository.NewGoalRepository(env.db), env.progress)
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Intentions", 1,
		testutil.SeqSpec{Title: "Goals", Type: model.SequenceGoalSetting}, testutil.Plain("Next"))
	req := SetGoalsRequest{ModuleID: m.ID, SequenceID: s[0].ID, Goals: threeGoals()}

	_, _, err := goals.SetGoals(ctx, user.ID, req)
	require.NoError(t, err)

	_, _, err = goals.SetGoals(ctx, user.ID, req)
	assert.ErrorIs(t, err, util.ErrSequenceAlreadyCompleted)

	list, err := goals.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, GoalCount)
}

func TestSetGoalsOnGatedSequenceSavesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	goals := NewGoalService(repository.NewGoalRepository(env.db), env.progress)
	user := testutil.CreateUser(t, env.db, "learner@example.com", model.Student, true)
	m, s := testutil.CreateModule(t, env.db, "Intentions", 1,
		testutil.SeqSpec{Title: "Goals", Type: model.SequenceGoalSetting, RequiresUpload: true})

	_, _, err := goals.SetGoals(ctx, user.ID, SetGoalsRequest{ModuleID: m.ID, SequenceID: s[0].ID, Goals: threeGoals()})
	assert.ErrorIs(t, err, util.ErrSequenceGated)

	list, err := goals.ListGoals(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, model.StatusUnlocked, env.status(t, user.ID, m.ID, s[0].ID))
}

func TestUpdateGoalOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	repo := repository.NewGoalRepository(env.db)
	goals := NewGoalService(repo, env.progress)

	require.NoError(t, repo.CreateBatch(ctx, []model.UserGoal{{
		UserID: "owner", GoalText: "Sit", SmallAction: "Cushion", TargetDate: time.Now(), Status: model.GoalActive,
	}}))
	list, err := goals.ListGoals(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = goals.UpdateGoal(ctx, "intruder", list[0].ID, UpdateGoalRequest{Status: model.GoalCompleted})
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = goals.UpdateGoal(ctx, "owner", "missing", UpdateGoalRequest{Status: model.GoalCompleted})
	assert.ErrorIs(t, err, util.ErrGoalNotFound)
}

func TestSaveVoiceReflection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reflections := NewReflectionService(repository.NewReflectionRepository(env.db), env.sequences, env.uploads)
	m, s := testutil.CreateModule(t, env.db, "Breath", 1, testutil.Plain("Welcome"))

	audio := make([]byte, 1024)
	copy(audio, "ID3\x03\x00\x00\x00\x00\x00\x00")
	saved, err := reflections.SaveVoiceReflection(ctx, "learner", VoiceReflectionInput{
		SequenceID: s[0].ID,
		Transcript: "calm today",
		Tags:       []string{"calm", "morning"},
		Media: MediaUpload{
			Filename:        "note.mp3",
			Size:            int64(len(audio)),
			Reader:          bytes.NewReader(audio),
			ReportedSeconds: 42,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, saved.ModuleID)
	assert.Equal(t, m.ID, *saved.ModuleID)
	assert.Equal(t, 42, saved.DurationSeconds)
	assert.Contains(t, saved.AudioURL, "/uploads/reflections/learner/")
	assert.JSONEq(t, `["calm","morning"]`, string(saved.Tags))

	list, err := reflections.ListVoiceReflections(ctx, "learner", 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = reflections.SaveVoiceReflection(ctx, "learner", VoiceReflectionInput{
		ModuleID:   "other-module",
		SequenceID: s[0].ID,
		Media:      MediaUpload{Size: 1, Reader: bytes.NewReader(audio), ReportedSeconds: 1},
	})
	assert.ErrorIs(t, err, util.ErrSequenceNotInModule)
}
