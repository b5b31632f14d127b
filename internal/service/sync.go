package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"OrderSync/internal/adapter"
	_ "OrderSync/internal/adapter/apilo"      // init注册工厂
	_ "OrderSync/internal/adapter/baselinker" // init注册工厂
	"OrderSync/internal/config"
	"OrderSync/internal/model"
	"OrderSync/internal/repository"
)

// SyncService 同步编排：适配器拉取 → 汇率折算 → 分片对账 → 审计落库
type SyncService struct {
	db       *gorm.DB
	logger   *logrus.Logger
	cfg      *config.Config
	registry *adapter.PlatformRegistry
	batch    *BatchRunner
	runs     repository.SyncRunRepository
	rates    RateProvider
}

func NewSyncService(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *SyncService {
	rc := NewReconciler(logger, ReconcilePolicy{
		ProductNameOverwrite: cfg.Sync.ProductNameOverwrite,
	})
	return &SyncService{
		db:       db,
		logger:   logger,
		cfg:      cfg,
		registry: adapter.NewPlatformRegistry(cfg, logger),
		batch:    NewBatchRunner(db, logger, rc),
		runs:     repository.NewSyncRunRepository(db),
		rates:    NewFallbackRates(NewNBPRates(&cfg.Rates, logger), NewStaticRates(), logger),
	}
}

// SyncPlatform 通用同步方法，平台与任务类型由调用方指定
func (s *SyncService) SyncPlatform(ctx context.Context, platformName string, kind model.SyncKind) (Aggregate, error) {
	platform := model.PlatformType(platformName)
	if !s.platformEnabled(platformName) {
		return Aggregate{}, fmt.Errorf("平台%s未启用", platformName)
	}

	adapterIns, err := s.registry.GetAdapter(platform)
	if err != nil {
		return Aggregate{}, err
	}

	table, err := s.rates.Table(ctx)
	if err != nil {
		return Aggregate{}, fmt.Errorf("获取汇率表失败: %w", err)
	}

	run := &model.SyncRun{
		RunUUID:   uuid.NewString(),
		Platform:  platformName,
		Kind:      string(kind),
		StartedAt: time.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return Aggregate{}, fmt.Errorf("创建同步审计记录失败: %w", err)
	}

	var agg Aggregate
	switch kind {
	case model.SyncOrders:
		to := time.Now()
		from := to.AddDate(0, 0, -s.previousDays())
		records, err := adapterIns.FetchOrders(ctx, from, to, table)
		if err != nil {
			return Aggregate{}, fmt.Errorf("%s拉取订单失败: %w", platformName, err)
		}
		agg = s.batch.RunOrders(ctx, records, s.cfg.Sync.ShardCount)
	case model.SyncOffers:
		records, err := adapterIns.FetchOffers(ctx, table)
		if err != nil {
			return Aggregate{}, fmt.Errorf("%s拉取offer失败: %w", platformName, err)
		}
		agg = s.batch.RunOffers(ctx, records, s.cfg.Sync.ShardCount)
	case model.SyncStocks:
		records, err := adapterIns.FetchStocks(ctx)
		if err != nil {
			return Aggregate{}, fmt.Errorf("%s拉取库存失败: %w", platformName, err)
		}
		agg = s.batch.RunStocks(ctx, records, s.cfg.Sync.ShardCount)
	default:
		return Aggregate{}, fmt.Errorf("未支持的同步类型: %s", kind)
	}

	run.Processed = agg.Processed
	run.Created = agg.Created
	run.Updated = agg.Updated
	run.Failed = agg.Failed
	if len(agg.FailedKeys) > 0 {
		if raw, err := json.Marshal(agg.FailedKeys); err == nil {
			run.FailedKeys = datatypes.JSON(raw)
		}
	}
	if err := s.runs.Finish(ctx, run); err != nil {
		s.logger.WithError(err).Warn("更新同步审计记录失败")
	}

	s.logger.WithFields(logrus.Fields{
		"platform":      platformName,
		"kind":          kind,
		"processed":     agg.Processed,
		"created":       agg.Created,
		"updated":       agg.Updated,
		"failed":        agg.Failed,
		"items_skipped": agg.ItemsSkipped,
	}).Info("同步完成")
	return agg, nil
}

// SyncAll 按配置顺序跑完所有启用平台的指定任务，单平台失败不阻断其余平台
func (s *SyncService) SyncAll(ctx context.Context, kind model.SyncKind) map[string]Aggregate {
	results := make(map[string]Aggregate)
	for _, name := range s.cfg.Sync.EnabledPlatforms {
		agg, err := s.SyncPlatform(ctx, name, kind)
		if err != nil {
			s.logger.WithError(err).WithField("platform", name).Error("平台同步失败")
			continue
		}
		results[name] = agg
	}
	return results
}

// ListRuns 最近的同步审计记录
func (s *SyncService) ListRuns(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	return s.runs.ListRecent(ctx, limit)
}

func (s *SyncService) platformEnabled(name string) bool {
	for _, p := range s.cfg.Sync.EnabledPlatforms {
		if p == name {
			return true
		}
	}
	return false
}

func (s *SyncService) previousDays() int {
	if s.cfg.Sync.PreviousDays <= 0 {
		return 1
	}
	return s.cfg.Sync.PreviousDays
}
