package util

import (
	"errors"
	"net/http"
)

var (
	// 参数校验
	ErrMissingFields       = errors.New("missing required fields")
	ErrVideoTooShort       = errors.New("video is shorter than the minimum duration")
	ErrVideoTooLong        = errors.New("video is longer than the maximum duration")
	ErrFileTooLarge        = errors.New("file exceeds the size limit")
	ErrInvalidFileType     = errors.New("invalid file type")
	ErrSubmissionMismatch  = errors.New("submission does not belong to this user and sequence")
	ErrSequenceGated       = errors.New("sequence requires an upload or an instructor response")
	ErrUploadNotRequired   = errors.New("sequence does not accept uploads")
	ErrSequenceNotInModule = errors.New("sequence does not belong to this module")
	ErrWrongSequenceType   = errors.New("sequence type does not support this action")

	// 权限
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotApproved      = errors.New("account is awaiting approval")

	// 状态冲突
	ErrSequenceLocked           = errors.New("sequence is locked")
	ErrSequenceAwaitingReview   = errors.New("sequence is awaiting instructor review")
	ErrSequenceAlreadyCompleted = errors.New("sequence is already completed")
	ErrSubmissionNotPending     = errors.New("submission is not pending")
	ErrReviewInProgress         = errors.New("submission is being reviewed")

	// 不存在
	ErrModuleNotFound     = errors.New("module not found")
	ErrSequenceNotFound   = errors.New("sequence not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrGoalNotFound       = errors.New("goal not found")
	ErrResponseNotFound   = errors.New("instructor response not found")
)

var errorStatus = []struct {
	err    error
	status int
}{
	{ErrMissingFields, http.StatusBadRequest},
	{ErrVideoTooShort, http.StatusBadRequest},
	{ErrVideoTooLong, http.StatusBadRequest},
	{ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{ErrInvalidFileType, http.StatusBadRequest},
	{ErrSubmissionMismatch, http.StatusBadRequest},
	{ErrSequenceGated, http.StatusBadRequest},
	{ErrUploadNotRequired, http.StatusBadRequest},
	{ErrSequenceNotInModule, http.StatusBadRequest},
	{ErrWrongSequenceType, http.StatusBadRequest},
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrNotApproved, http.StatusForbidden},
	{ErrSequenceLocked, http.StatusConflict},
	{ErrSequenceAwaitingReview, http.StatusConflict},
	{ErrSequenceAlreadyCompleted, http.StatusConflict},
	{ErrSubmissionNotPending, http.StatusConflict},
	{ErrReviewInProgress, http.StatusConflict},
	{ErrModuleNotFound, http.StatusNotFound},
	{ErrSequenceNotFound, http.StatusNotFound},
	{ErrSubmissionNotFound, http.StatusNotFound},
	{ErrUserNotFound, http.StatusNotFound},
	{ErrGoalNotFound, http.StatusNotFound},
	{ErrResponseNotFound, http.StatusNotFound},
}

// StatusOf 将领域错误映射为 HTTP 状态码，未知错误返回 500
func StatusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
