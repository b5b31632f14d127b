package repository

import (
	"context"
	"errors"
	"strings"

	"OrderSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateKey 唯一约束冲突（并发分片抢同一自然键时出现），调用方重读一次即可收敛
var ErrDuplicateKey = errors.New("唯一键冲突")

// isDuplicateKey 识别各方言的唯一约束报错（postgres 23505 / sqlite UNIQUE constraint）
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// ReconcileRepository 冲突安全的写仓储：全部走 ON CONFLICT，并发分片抢同键时收敛而不是报错
// 唯一例外是 CreateOrder：订单靠唯一约束兜底，冲突以 ErrDuplicateKey 上抛由调用方重读
type ReconcileRepository interface {
	// UpsertMarketplace 按 (external_id, platform_origin, type) upsert，命中时只刷新展示名
	UpsertMarketplace(ctx context.Context, mp *model.Marketplace) error
	// EnsureProduct 按 sku 存在即不动（订单/offer路径：只知道sku和名字，不覆盖主数据）
	EnsureProduct(ctx context.Context, p *model.Product) error
	// UpsertProduct 按 sku upsert 商品主数据（库存同步路径），nameOverwrite=false 时保留库内名称
	UpsertProduct(ctx context.Context, p *model.Product, nameOverwrite bool) error
	// EnsureLink 商品-渠道关联只增不改
	EnsureLink(ctx context.Context, productID, marketplaceID uint64) error
	CreateOrder(ctx context.Context, o *model.Order) error
	CreateOrderItems(ctx context.Context, items []*model.OrderItem) error
	CreateOffer(ctx context.Context, o *model.Offer) error
	// UpdateOffer 按主键刷新可变字段（listing是活数据）
	UpdateOffer(ctx context.Context, o *model.Offer) error
}

type reconcileRepository struct {
	db *gorm.DB
}

// NewReconcileRepository 创建写仓储；传入事务句柄则所有写都在该事务内
func NewReconcileRepository(db *gorm.DB) ReconcileRepository {
	return &reconcileRepository{db: db}
}

func (r *reconcileRepository) UpsertMarketplace(ctx context.Context, mp *model.Marketplace) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}, {Name: "platform_origin"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(mp).Error; err != nil {
		return err
	}
	// 冲突分支不回填主键，按自然键补查一次
	if mp.ID == 0 {
		if err := r.db.WithContext(ctx).
			Where("external_id = ? AND platform_origin = ? AND type = ?", mp.ExternalID, mp.PlatformOrigin, mp.Type).
			First(mp).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *reconcileRepository) EnsureProduct(ctx context.Context, p *model.Product) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoNothing: true,
	}).Create(p).Error; err != nil {
		return err
	}
	if p.ID == 0 {
		if err := r.db.WithContext(ctx).Where("sku = ?", p.SKU).First(p).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *reconcileRepository) UpsertProduct(ctx context.Context, p *model.Product, nameOverwrite bool) error {
	assign := []string{"image_url", "kind", "unit_purchase_cost"}
	if nameOverwrite {
		assign = append(assign, "name")
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(p).Error; err != nil {
		return err
	}
	if p.ID == 0 {
		if err := r.db.WithContext(ctx).Where("sku = ?", p.SKU).First(p).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *reconcileRepository) EnsureLink(ctx context.Context, productID, marketplaceID uint64) error {
	link := &model.ProductMarketplaceLink{
		ProductID:     productID,
		MarketplaceID: marketplaceID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "marketplace_id"}},
		DoNothing: true,
	}).Create(link).Error
}

func (r *reconcileRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *reconcileRepository) CreateOrderItems(ctx context.Context, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(items).Error
}

func (r *reconcileRepository) CreateOffer(ctx context.Context, o *model.Offer) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *reconcileRepository) UpdateOffer(ctx context.Context, o *model.Offer) error {
	return r.db.WithContext(ctx).Model(&model.Offer{}).
		Where("id = ?", o.ID).
		Updates(map[string]interface{}{
			"name":             o.Name,
			"ean":              o.EAN,
			"started_at":       o.StartedAt,
			"ended_at":         o.EndedAt,
			"quantity_selling": o.QuantitySelling,
			"price_with_tax":   o.PriceWithTax,
			"status":           o.Status,
			"product_id":       o.ProductID,
		}).Error
}
