package service

import (
	"sort"
	"yoi_portal_backend/internal/model"
)

// SequenceProgress 序列及其有效状态
type SequenceProgress struct {
	SequenceID                 string               `json:"sequenceId"`
	SequenceNumber             int                  `json:"sequenceNumber"`
	Title                      string               `json:"title"`
	Type                       model.SequenceType   `json:"sequenceType"`
	Media                      model.MediaKind      `json:"media"`
	RequiresUpload             bool                 `json:"requiresUpload"`
	RequiresInstructorResponse bool                 `json:"requiresInstructorResponse"`
	Status                     model.SequenceStatus `json:"status"`
}

func sortedSequences(sequences []model.Sequence) []model.Sequence {
	ordered := make([]model.Sequence, len(sequences))
	copy(ordered, sequences)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceNumber < ordered[j].SequenceNumber
	})
	return ordered
}

// Resolve 计算每个序列的有效状态
// 已存储的状态直接采用；没有记录时第一个序列为 unlocked，其余为 locked
func Resolve(sequences []model.Sequence, entries []model.ProgressEntry) map[string]model.SequenceStatus {
	stored := make(map[string]model.SequenceStatus, len(entries))
	for _, e := range entries {
		if e.Status.Valid() {
			stored[e.SequenceID] = e.Status
		}
	}

	result := make(map[string]model.SequenceStatus, len(sequences))
	for i, seq := range sortedSequences(sequences) {
		switch status, ok := stored[seq.ID]; {
		case ok:
			result[seq.ID] = status
		case i == 0:
			result[seq.ID] = model.StatusUnlocked
		default:
			result[seq.ID] = model.StatusLocked
		}
	}
	return result
}

// ResolveOrdered 按 sequence_number 排序的进度列表
func ResolveOrdered(sequences []model.Sequence, entries []model.ProgressEntry) []SequenceProgress {
	statuses := Resolve(sequences, entries)
	ordered := sortedSequences(sequences)
	out := make([]SequenceProgress, 0, len(ordered))
	for _, seq := range ordered {
		out = append(out, SequenceProgress{
			SequenceID:                 seq.ID,
			SequenceNumber:             seq.SequenceNumber,
			Title:                      seq.Title,
			Type:                       seq.SequenceType,
			Media:                      seq.SequenceType.MediaKind(),
			RequiresUpload:             seq.RequiresUpload,
			RequiresInstructorResponse: seq.RequiresInstructorResponse,
			Status:                     statuses[seq.ID],
		})
	}
	return out
}

// ModuleStatusOf 模块汇总状态：awaiting > completed > in_progress > not_started
func ModuleStatusOf(totalSequences int, entries []model.ProgressEntry) model.ModuleProgressStatus {
	completed := 0
	for _, e := range entries {
		switch e.Status {
		case model.StatusAwaitingResponse:
			return model.ModuleAwaiting
		case model.StatusCompleted:
			completed++
		}
	}
	switch {
	case totalSequences > 0 && completed >= totalSequences:
		return model.ModuleCompleted
	case completed > 0:
		return model.ModuleInProgress
	}
	return model.ModuleNotStarted
}

// CountCompleted 已完成条目数
func CountCompleted(entries []model.ProgressEntry) int {
	n := 0
	for _, e := range entries {
		if e.Status == model.StatusCompleted {
			n++
		}
	}
	return n
}

// NextSequence 返回 sequence_number 紧随 current 的序列，没有时返回 nil
func NextSequence(sequences []model.Sequence, current *model.Sequence) *model.Sequence {
	for i := range sequences {
		if sequences[i].ModuleID == current.ModuleID && sequences[i].SequenceNumber == current.SequenceNumber+1 {
			return &sequences[i]
		}
	}
	return nil
}
