package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"OrderSync/internal/model"
	"OrderSync/internal/repository"
)

// Result 单条记录对账结果
type Result struct {
	ID           uint64 // 对账后记录在库内的主键
	Created      bool   // 本次新建
	Changed      bool   // 本次更新了可变字段
	ItemsSkipped int    // 被跳过的非法明细数
}

// ReconcilePolicy 对账策略开关
type ReconcilePolicy struct {
	// ProductNameOverwrite 库存同步时是否用上游名称覆盖已有商品名。
	// 订单与offer路径对已存在商品一律不改名。
	ProductNameOverwrite bool
}

// Reconciler 以单条规范记录为单位做幂等对账。
// 所有方法都要求调用方传入事务内的 *gorm.DB，父子实体写入与快照追加同生共死。
type Reconciler struct {
	logger *logrus.Logger
	policy ReconcilePolicy
}

func NewReconciler(logger *logrus.Logger, policy ReconcilePolicy) *Reconciler {
	return &Reconciler{logger: logger, policy: policy}
}

// ReconcileOrder 订单对账：渠道upsert → 按自然键查重 → 不存在才建单。
// 订单入库后不可变，自然键命中时原样返回已有主键，不做任何更新。
func (rc *Reconciler) ReconcileOrder(ctx context.Context, tx *gorm.DB, rec *model.OrderRecord) (Result, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Result{}, &ValidationError{Key: rec.Key(), Err: err}
	}

	lookups := repository.NewLookupRepository(tx)
	writes := repository.NewReconcileRepository(tx)
	history := repository.NewHistoryRepository(tx)

	mp := &model.Marketplace{
		ExternalID:     rec.MarketplaceExtID,
		PlatformOrigin: rec.PlatformOrigin,
		Type:           rec.MarketplaceType,
		Name:           rec.MarketplaceName,
	}
	if err := writes.UpsertMarketplace(ctx, mp); err != nil {
		return Result{}, &DependencyError{Key: rec.Key(), Entity: "marketplace", Err: err}
	}

	existing, err := lookups.FindOrder(ctx, rec.ExternalID, mp.ID)
	if err != nil {
		return Result{}, fmt.Errorf("查询订单失败: %w", err)
	}
	if existing != nil {
		return Result{ID: existing.ID}, nil
	}

	// 明细逐条校验，坏明细跳过不拖累整单
	var valid []model.OrderItemRecord
	skipped := 0
	for i := range rec.Items {
		if err := rec.Items[i].Validate(); err != nil {
			rc.logger.WithFields(logrus.Fields{
				"order": rec.Key(),
				"sku":   rec.Items[i].SKU,
			}).Warnf("跳过非法明细: %v", err)
			skipped++
			continue
		}
		valid = append(valid, rec.Items[i])
	}

	products := make([]*model.Product, len(valid))
	for i := range valid {
		p := &model.Product{SKU: valid[i].SKU, Name: valid[i].Name}
		if err := writes.EnsureProduct(ctx, p); err != nil {
			return Result{}, &DependencyError{Key: rec.Key(), Entity: "product", Err: err}
		}
		if err := writes.EnsureLink(ctx, p.ID, mp.ID); err != nil {
			return Result{}, &DependencyError{Key: rec.Key(), Entity: "link", Err: err}
		}
		products[i] = p
	}

	order := &model.Order{
		ExternalID:           rec.ExternalID,
		MarketplaceID:        mp.ID,
		CreatedAt:            rec.CreatedAt,
		TotalGrossOriginal:   rec.TotalGrossOriginal,
		TotalGrossPLN:        rec.TotalGrossPLN,
		DeliveryCostOriginal: rec.DeliveryCostOriginal,
		DeliveryCostPLN:      rec.DeliveryCostPLN,
		DeliveryMethod:       rec.DeliveryMethod,
		Currency:             rec.Currency,
		Status:               rec.Status,
		Country:              rec.Country,
		City:                 rec.City,
	}
	if err := writes.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// 并发分片抢先建了同一单，重读收敛
			raced, rerr := lookups.FindOrder(ctx, rec.ExternalID, mp.ID)
			if rerr == nil && raced != nil {
				return Result{ID: raced.ID, ItemsSkipped: skipped}, nil
			}
			return Result{}, &ConflictError{Key: rec.Key(), Err: err}
		}
		return Result{}, fmt.Errorf("创建订单失败: %w", err)
	}

	items := make([]*model.OrderItem, len(valid))
	for i := range valid {
		items[i] = &model.OrderItem{
			OrderID:   order.ID,
			ProductID: products[i].ID,
			Price:     valid[i].Price,
			PricePLN:  valid[i].PricePLN,
			Quantity:  valid[i].Quantity,
			TaxRate:   valid[i].TaxRate,
		}
	}
	if err := writes.CreateOrderItems(ctx, items); err != nil {
		return Result{}, fmt.Errorf("创建订单明细失败: %w", err)
	}

	// 成交价按订单渠道侧日期写入价格快照
	for i := range valid {
		if err := history.AppendPrice(ctx, products[i].ID, mp.ID, rec.CreatedAt, valid[i].PricePLN); err != nil {
			return Result{}, fmt.Errorf("写入价格快照失败: %w", err)
		}
	}

	return Result{ID: order.ID, Created: true, ItemsSkipped: skipped}, nil
}

// ReconcileOffer offer对账：offer是活的列表，自然键命中时刷新可变字段；
// 只要在售，无论本次有无变化都把当日含税价写入价格快照。
func (rc *Reconciler) ReconcileOffer(ctx context.Context, tx *gorm.DB, rec *model.OfferRecord) (Result, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Result{}, &ValidationError{Key: rec.Key(), Err: err}
	}

	lookups := repository.NewLookupRepository(tx)
	writes := repository.NewReconcileRepository(tx)
	history := repository.NewHistoryRepository(tx)

	mp := &model.Marketplace{
		ExternalID:     rec.MarketplaceExtID,
		PlatformOrigin: rec.PlatformOrigin,
		Type:           rec.MarketplaceType,
		Name:           rec.MarketplaceName,
	}
	if err := writes.UpsertMarketplace(ctx, mp); err != nil {
		return Result{}, &DependencyError{Key: rec.Key(), Entity: "marketplace", Err: err}
	}

	product := &model.Product{SKU: rec.SKU, Name: rec.Name}
	if err := writes.EnsureProduct(ctx, product); err != nil {
		return Result{}, &DependencyError{Key: rec.Key(), Entity: "product", Err: err}
	}
	if err := writes.EnsureLink(ctx, product.ID, mp.ID); err != nil {
		return Result{}, &DependencyError{Key: rec.Key(), Entity: "link", Err: err}
	}

	res := Result{}
	existing, err := lookups.FindOffer(ctx, rec.ExternalID, rec.OriginID, mp.ID)
	if err != nil {
		return Result{}, fmt.Errorf("查询offer失败: %w", err)
	}
	if existing == nil {
		offer := buildOffer(rec, mp.ID, product.ID)
		if err := writes.CreateOffer(ctx, offer); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return Result{}, &ConflictError{Key: rec.Key(), Err: err}
			}
			return Result{}, fmt.Errorf("创建offer失败: %w", err)
		}
		res = Result{ID: offer.ID, Created: true}
	} else {
		want := buildOffer(rec, mp.ID, product.ID)
		want.ID = existing.ID
		if offerChanged(existing, want) {
			if err := writes.UpdateOffer(ctx, want); err != nil {
				return Result{}, fmt.Errorf("更新offer失败: %w", err)
			}
			res = Result{ID: existing.ID, Changed: true}
		} else {
			res = Result{ID: existing.ID}
		}
	}

	if rec.IsActive {
		if err := history.AppendPrice(ctx, product.ID, mp.ID, time.Now(), rec.PriceWithTax); err != nil {
			return Result{}, fmt.Errorf("写入价格快照失败: %w", err)
		}
	}
	return res, nil
}

// ReconcileStock 库存快照对账：upsert商品主数据后覆盖写当日库存。
// 同一天重复跑以最后一次为准。
func (rc *Reconciler) ReconcileStock(ctx context.Context, tx *gorm.DB, rec *model.ProductStockRecord, date time.Time) (Result, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Result{}, &ValidationError{Key: rec.Key(), Err: err}
	}

	lookups := repository.NewLookupRepository(tx)
	writes := repository.NewReconcileRepository(tx)
	history := repository.NewHistoryRepository(tx)

	existing, err := lookups.FindProductBySKU(ctx, rec.SKU)
	if err != nil {
		return Result{}, fmt.Errorf("查询商品失败: %w", err)
	}

	product := &model.Product{
		SKU:              rec.SKU,
		Name:             rec.Name,
		ImageURL:         rec.ImageURL,
		Kind:             rec.Kind,
		UnitPurchaseCost: rec.UnitPurchaseCost,
	}
	if err := writes.UpsertProduct(ctx, product, rc.policy.ProductNameOverwrite); err != nil {
		return Result{}, &DependencyError{Key: rec.Key(), Entity: "product", Err: err}
	}

	if err := history.AppendStock(ctx, product.ID, date, rec.Stock); err != nil {
		return Result{}, fmt.Errorf("写入库存快照失败: %w", err)
	}

	if existing == nil {
		return Result{ID: product.ID, Created: true}, nil
	}
	return Result{ID: product.ID, Changed: rc.productChanged(existing, product)}, nil
}

// productChanged 只看本次会写入的可变字段，名称仅在覆盖策略开启时参与比较
func (rc *Reconciler) productChanged(old, want *model.Product) bool {
	if old.ImageURL != want.ImageURL || old.Kind != want.Kind {
		return true
	}
	if !old.UnitPurchaseCost.Equal(want.UnitPurchaseCost) {
		return true
	}
	if rc.policy.ProductNameOverwrite && old.Name != want.Name {
		return true
	}
	return false
}

func buildOffer(rec *model.OfferRecord, marketplaceID, productID uint64) *model.Offer {
	return &model.Offer{
		ExternalID:      rec.ExternalID,
		OriginID:        rec.OriginID,
		MarketplaceID:   marketplaceID,
		ProductID:       productID,
		Name:            rec.Name,
		EAN:             rec.EAN,
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
		QuantitySelling: rec.QuantitySelling,
		Status:          rec.StatusName,
		PriceWithTax:    rec.PriceWithTax,
	}
}

// offerChanged 只比较可变字段，自然键不参与
func offerChanged(old, want *model.Offer) bool {
	if old.Name != want.Name || old.Status != want.Status {
		return true
	}
	if old.QuantitySelling != want.QuantitySelling || old.ProductID != want.ProductID {
		return true
	}
	if !old.PriceWithTax.Equal(want.PriceWithTax) {
		return true
	}
	if !equalStringPtr(old.EAN, want.EAN) {
		return true
	}
	if !equalTimePtr(old.StartedAt, want.StartedAt) || !equalTimePtr(old.EndedAt, want.EndedAt) {
		return true
	}
	return false
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
