package repository

import (
	"context"
	"errors"
	"yoi_portal_backend/internal/model"
	"yoi_portal_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) FindByID(ctx context.Context, id string) (*model.Module, error) {
	var module model.Module
	err := r.DB.WithContext(ctx).First(&module, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *ModuleRepository) ListPublished(ctx context.Context) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.WithContext(ctx).
		Where("status = ?", model.ModulePublished).
		Order("module_order ASC").
		Find(&modules).Error
	return modules, err
}

// TitlesByIDs 批量查询标题，用于列表展示
func (r *ModuleRepository) TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	var modules []model.Module
	if err := r.DB.WithContext(ctx).Select("id", "title").Where("id IN ?", ids).Find(&modules).Error; err != nil {
		return nil, err
	}
	for _, m := range modules {
		titles[m.ID] = m.Title
	}
	return titles, nil
}

type SequenceRepository struct {
	DB *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{DB: db}
}

// checkTypes 序列表由后台直接维护，读到未知类型时记录错误并保留该行，按文本渲染
func checkTypes(sequences []model.Sequence) {
	for i := range sequences {
		if _, err := model.ParseSequenceType(string(sequences[i].SequenceType)); err != nil {
			logger.Log.Error("Sequence has unknown type",
				zap.String("sequence_id", sequences[i].ID),
				zap.String("module_id", sequences[i].ModuleID),
				zap.Error(err))
		}
	}
}

// ListByModule 按 sequence_number 升序
func (r *SequenceRepository) ListByModule(ctx context.Context, moduleID string) ([]model.Sequence, error) {
	var sequences []model.Sequence
	err := r.DB.WithContext(ctx).
		Where("module_id = ?", moduleID).
		Order("sequence_number ASC").
		Find(&sequences).Error
	if err != nil {
		return nil, err
	}
	checkTypes(sequences)
	return sequences, nil
}

// ListByModules 多个模块的序列，按模块分组
func (r *SequenceRepository) ListByModules(ctx context.Context, moduleIDs []string) (map[string][]model.Sequence, error) {
	grouped := make(map[string][]model.Sequence, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return grouped, nil
	}
	var sequences []model.Sequence
	err := r.DB.WithContext(ctx).
		Where("module_id IN ?", moduleIDs).
		Order("sequence_number ASC").
		Find(&sequences).Error
	if err != nil {
		return nil, err
	}
	checkTypes(sequences)
	for _, s := range sequences {
		grouped[s.ModuleID] = append(grouped[s.ModuleID], s)
	}
	return grouped, nil
}

func (r *SequenceRepository) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Sequence, error) {
	var seq model.Sequence
	err := conn(ctx, r.DB, tx).First(&seq, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	checkTypes([]model.Sequence{seq})
	return &seq, nil
}

// FindByNumber 同模块中指定序号的序列，不存在时返回 nil, nil
func (r *SequenceRepository) FindByNumber(ctx context.Context, tx *gorm.DB, moduleID string, number int) (*model.Sequence, error) {
	var seq model.Sequence
	err := conn(ctx, r.DB, tx).
		Where("module_id = ? AND sequence_number = ?", moduleID, number).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	checkTypes([]model.Sequence{seq})
	return &seq, nil
}

func (r *SequenceRepository) TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	var sequences []model.Sequence
	if err := r.DB.WithContext(ctx).Select("id", "title").Where("id IN ?", ids).Find(&sequences).Error; err != nil {
		return nil, err
	}
	for _, s := range sequences {
		titles[s.ID] = s.Title
	}
	return titles, nil
}
