package repository

import (
	"context"
	"time"

	"OrderSync/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DayOf 截断到日（UTC），历史表只认日粒度
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HistoryRepository 时序快照仓储：价格/库存按天 upsert，同日重复写收敛为最新值
type HistoryRepository interface {
	AppendPrice(ctx context.Context, productID, marketplaceID uint64, date time.Time, pricePLN decimal.Decimal) error
	AppendStock(ctx context.Context, productID uint64, date time.Time, stock int) error
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建时序快照仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) AppendPrice(ctx context.Context, productID, marketplaceID uint64, date time.Time, pricePLN decimal.Decimal) error {
	row := &model.PriceHistory{
		ProductID:     productID,
		MarketplaceID: marketplaceID,
		Date:          DayOf(date),
		PricePLN:      pricePLN,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "marketplace_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"price_pln"}),
	}).Create(row).Error
}

func (r *historyRepository) AppendStock(ctx context.Context, productID uint64, date time.Time, stock int) error {
	row := &model.StockHistory{
		ProductID: productID,
		Date:      DayOf(date),
		Stock:     stock,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"stock"}),
	}).Create(row).Error
}
