package service

import (
	"context"
	"testing"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubmissionFilter(t *testing.T) {
	tests := []struct {
		in     string
		want   model.SubmissionStatus
		wantOK bool
	}{
		{"", "", true},
		{"all", "", true},
		{"pending", model.SubmissionPending, true},
		{"reviewed", model.SubmissionReviewed, true},
		{"rejected", model.SubmissionRejected, true},
		{"PENDING", "", false},
		{"archived", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSubmissionFilter(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAdminStatsAndSubmissions(t *testing.T) {
	f := newReviewFixture(t)
	env := f.env
	ctx := context.Background()
	admin := NewAdminService(env.users, env.modules, env.sequences, env.submissions)

	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Students)
	assert.EqualValues(t, 1, stats.Pending)
	assert.Zero(t, stats.Reviewed)

	rows, err := admin.ListSubmissions(ctx, model.SubmissionPending)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Unknown", rows[0].UserName)
	assert.Equal(t, "learner@example.com", rows[0].UserEmail)
	assert.Equal(t, "Breath", rows[0].ModuleTitle)
	assert.Equal(t, "Practice", rows[0].SequenceTitle)

	_, err = env.review.Review(ctx, f.input())
	require.NoError(t, err)

	rows, err = admin.ListSubmissions(ctx, model.SubmissionPending)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = admin.ListSubmissions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = admin.ListUserSubmissions(ctx, f.learner.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.SubmissionReviewed, rows[0].Status)
}

func TestSetApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.users, env.uploads)

	pending := &model.User{Email: "new@example.com", Role: model.Student}
	require.NoError(t, env.db.Create(pending).Error)

	identity, err := env.access.Lookup(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, identity.NeedsApproval())

	require.NoError(t, users.SetApproval(ctx, "admin", pending.ID, true))
	identity, err = env.access.Lookup(ctx, pending.ID)
	require.NoError(t, err)
	assert.False(t, identity.NeedsApproval())

	// 重复写入相同的值仍然成功
	require.NoError(t, users.SetApproval(ctx, "admin", pending.ID, true))

	assert.ErrorIs(t, users.SetApproval(ctx, "admin", "missing", true), util.ErrUserNotFound)
	assert.ErrorIs(t, users.SetApproval(ctx, "admin", "", true), util.ErrMissingFields)

	approved := false
	list, err := users.ListUsers(ctx, &approved)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = users.ListUsers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
