package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"OrderSync/internal/model"
	"OrderSync/internal/repository"
)

// Aggregate 批量对账聚合结果，与分片数无关。
// ItemsSkipped单独计数：坏明细不拖垮整单，但也不能无声吞掉。
type Aggregate struct {
	Processed    int      `json:"processed"`
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	Failed       int      `json:"failed"`
	ItemsSkipped int      `json:"items_skipped"`
	FailedKeys   []string `json:"failed_keys,omitempty"`
}

func (a *Aggregate) merge(other Aggregate) {
	a.Processed += other.Processed
	a.Created += other.Created
	a.Updated += other.Updated
	a.Failed += other.Failed
	a.ItemsSkipped += other.ItemsSkipped
	a.FailedKeys = append(a.FailedKeys, other.FailedKeys...)
}

// BatchRunner 把一批规范记录切成连续分片并发对账。
// 每条记录独立事务，单条失败只记键不中断分片。
type BatchRunner struct {
	db     *gorm.DB
	logger *logrus.Logger
	rc     *Reconciler
}

func NewBatchRunner(db *gorm.DB, logger *logrus.Logger, rc *Reconciler) *BatchRunner {
	return &BatchRunner{db: db, logger: logger, rc: rc}
}

func (b *BatchRunner) RunOrders(ctx context.Context, records []*model.OrderRecord, shardCount int) Aggregate {
	return runShards(ctx, records, shardCount, func(ctx context.Context, rec *model.OrderRecord) (Result, error) {
		var res Result
		err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			r, err := b.rc.ReconcileOrder(ctx, tx, rec)
			res = r
			return err
		})
		return res, err
	}, func(rec *model.OrderRecord) string { return rec.Key() }, b.logger)
}

func (b *BatchRunner) RunOffers(ctx context.Context, records []*model.OfferRecord, shardCount int) Aggregate {
	return runShards(ctx, records, shardCount, func(ctx context.Context, rec *model.OfferRecord) (Result, error) {
		var res Result
		err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			r, err := b.rc.ReconcileOffer(ctx, tx, rec)
			res = r
			return err
		})
		return res, err
	}, func(rec *model.OfferRecord) string { return rec.Key() }, b.logger)
}

func (b *BatchRunner) RunStocks(ctx context.Context, records []*model.ProductStockRecord, shardCount int) Aggregate {
	date := repository.DayOf(time.Now())
	return runShards(ctx, records, shardCount, func(ctx context.Context, rec *model.ProductStockRecord) (Result, error) {
		var res Result
		err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			r, err := b.rc.ReconcileStock(ctx, tx, rec, date)
			res = r
			return err
		})
		return res, err
	}, func(rec *model.ProductStockRecord) string { return rec.Key() }, b.logger)
}

// partition 把n条记录切成k个连续区间，前 n%k 个区间多摊一条。
// 返回每个分片的 [start, end) 下标对。
func partition(n, k int) [][2]int {
	if k <= 0 {
		k = 1
	}
	spans := make([][2]int, 0, k)
	base, extra := n/k, n%k
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		spans = append(spans, [2]int{start, start + size})
		start += size
	}
	return spans
}

// runShards 分片并发执行，单条记录在自己的事务内对账，
// 唯一键竞争重试一次，校验失败不重试。聚合结果按分片序合并，与k无关。
func runShards[T any](
	ctx context.Context,
	records []T,
	shardCount int,
	apply func(context.Context, T) (Result, error),
	keyOf func(T) string,
	logger *logrus.Logger,
) Aggregate {
	spans := partition(len(records), shardCount)
	parts := make([]Aggregate, len(spans))

	var wg sync.WaitGroup
	for i, span := range spans {
		if span[0] == span[1] {
			continue
		}
		wg.Add(1)
		go func(idx int, lo, hi int) {
			defer wg.Done()
			agg := &parts[idx]
			for _, rec := range records[lo:hi] {
				if ctx.Err() != nil {
					// 上下文取消，剩余记录按失败上报
					agg.Processed++
					agg.Failed++
					agg.FailedKeys = append(agg.FailedKeys, keyOf(rec))
					continue
				}
				agg.Processed++
				res, err := apply(ctx, rec)
				if err != nil && retryable(err) {
					logger.WithField("key", keyOf(rec)).Warnf("对账冲突，重试一次: %v", err)
					res, err = apply(ctx, rec)
				}
				if err != nil {
					agg.Failed++
					agg.FailedKeys = append(agg.FailedKeys, keyOf(rec))
					logger.WithField("key", keyOf(rec)).Errorf("记录对账失败: %v", err)
					continue
				}
				agg.ItemsSkipped += res.ItemsSkipped
				if res.Created {
					agg.Created++
				} else if res.Changed {
					agg.Updated++
				}
			}
		}(i, span[0], span[1])
	}
	wg.Wait()

	var total Aggregate
	for i := range parts {
		total.merge(parts[i])
	}
	return total
}

// retryable 只有唯一键竞争与存储瞬断值得换个事务再试
func retryable(err error) bool {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return true
	}
	var unavailable *StoreUnavailable
	return errors.As(err, &unavailable)
}
