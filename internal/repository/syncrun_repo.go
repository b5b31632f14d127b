package repository

import (
	"context"
	"time"

	"OrderSync/internal/model"

	"gorm.io/gorm"
)

// SyncRunRepository 同步运行审计仓储
type SyncRunRepository interface {
	Create(ctx context.Context, run *model.SyncRun) error
	// Finish 回写计数与结束时间
	Finish(ctx context.Context, run *model.SyncRun) error
	ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error)
}

type syncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository 创建同步运行仓储
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{db: db}
}

func (r *syncRunRepository) Create(ctx context.Context, run *model.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRunRepository) Finish(ctx context.Context, run *model.SyncRun) error {
	now := time.Now()
	run.FinishedAt = &now
	return r.db.WithContext(ctx).Model(&model.SyncRun{}).
		Where("run_uuid = ?", run.RunUUID).
		Updates(map[string]interface{}{
			"processed":   run.Processed,
			"created":     run.Created,
			"updated":     run.Updated,
			"failed":      run.Failed,
			"failed_keys": run.FailedKeys,
			"finished_at": run.FinishedAt,
		}).Error
}

func (r *syncRunRepository) ListRecent(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var runs []*model.SyncRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
