package service

import (
	"context"
	"encoding/json"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/util"

	"gorm.io/datatypes"
)

// VoiceReflectionInput 语音反思上传，模块和序列可选
type VoiceReflectionInput struct {
	ModuleID   string
	SequenceID string
	Transcript string
	Tags       []string
	Media      MediaUpload
}

type ReflectionService struct {
	Repo         *repository.ReflectionRepository
	SequenceRepo *repository.SequenceRepository
	Uploads      *UploadService
}

func NewReflectionService(repo *repository.ReflectionRepository, sequenceRepo *repository.SequenceRepository, uploads *UploadService) *ReflectionService {
	return &ReflectionService{Repo: repo, SequenceRepo: sequenceRepo, Uploads: uploads}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// SaveVoiceReflection 上传音频并记录反思
func (s *ReflectionService) SaveVoiceReflection(ctx context.Context, userID string, in VoiceReflectionInput) (*model.VoiceReflection, error) {
	if in.SequenceID != "" {
		seq, err := s.SequenceRepo.FindByID(ctx, nil, in.SequenceID)
		if err != nil {
			return nil, err
		}
		if seq == nil {
			return nil, util.ErrSequenceNotFound
		}
		if in.ModuleID != "" && seq.ModuleID != in.ModuleID {
			return nil, util.ErrSequenceNotInModule
		}
		in.ModuleID = seq.ModuleID
	}

	media, err := s.Uploads.SaveVoice(ctx, userID, in.Media)
	if err != nil {
		return nil, err
	}

	reflection := &model.VoiceReflection{
		UserID:          userID,
		ModuleID:        optional(in.ModuleID),
		SequenceID:      optional(in.SequenceID),
		AudioURL:        media.URL,
		Transcript:      in.Transcript,
		DurationSeconds: media.Seconds,
	}
	if len(in.Tags) > 0 {
		raw, err := json.Marshal(in.Tags)
		if err != nil {
			return nil, err
		}
		reflection.Tags = datatypes.JSON(raw)
	}
	if err := s.Repo.Create(ctx, reflection); err != nil {
		return nil, err
	}
	return reflection, nil
}

func (s *ReflectionService) ListVoiceReflections(ctx context.Context, userID string, limit int) ([]model.VoiceReflection, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}
