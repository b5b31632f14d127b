package repository

import (
	"context"
	"errors"
	"strings"

	"OrderSync/internal/model"

	"gorm.io/gorm"
)

// ErrBlankNaturalKey 自然键含空字段时拒绝查询：空键查出来的行必然是错配
var ErrBlankNaturalKey = errors.New("自然键字段为空")

// LookupRepository 身份解析仓储：只读，按自然键找已落库的行
// 找不到时返回 (nil, nil)，调用方据此决定创建还是复用
type LookupRepository interface {
	// FindMarketplace 三字段复合键缺一不可，少了type会把不同渠道混为一条
	FindMarketplace(ctx context.Context, externalID, platformOrigin, marketplaceType string) (*model.Marketplace, error)
	FindProductBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindOrder(ctx context.Context, externalID string, marketplaceID uint64) (*model.Order, error)
	FindOffer(ctx context.Context, externalID, originID string, marketplaceID uint64) (*model.Offer, error)
	HasLink(ctx context.Context, productID, marketplaceID uint64) (bool, error)
}

type lookupRepository struct {
	db *gorm.DB
}

// NewLookupRepository 创建身份解析仓储
func NewLookupRepository(db *gorm.DB) LookupRepository {
	return &lookupRepository{db: db}
}

func (r *lookupRepository) FindMarketplace(ctx context.Context, externalID, platformOrigin, marketplaceType string) (*model.Marketplace, error) {
	if strings.TrimSpace(externalID) == "" || strings.TrimSpace(platformOrigin) == "" || strings.TrimSpace(marketplaceType) == "" {
		return nil, ErrBlankNaturalKey
	}
	var mp model.Marketplace
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND platform_origin = ? AND type = ?", externalID, platformOrigin, marketplaceType).
		First(&mp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

func (r *lookupRepository) FindProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, ErrBlankNaturalKey
	}
	var p model.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *lookupRepository) FindOrder(ctx context.Context, externalID string, marketplaceID uint64) (*model.Order, error) {
	if strings.TrimSpace(externalID) == "" || marketplaceID == 0 {
		return nil, ErrBlankNaturalKey
	}
	var o model.Order
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND marketplace_id = ?", externalID, marketplaceID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *lookupRepository) FindOffer(ctx context.Context, externalID, originID string, marketplaceID uint64) (*model.Offer, error) {
	if strings.TrimSpace(externalID) == "" || marketplaceID == 0 {
		return nil, ErrBlankNaturalKey
	}
	var of model.Offer
	err := r.db.WithContext(ctx).
		Where("external_id = ? AND origin_id = ? AND marketplace_id = ?", externalID, originID, marketplaceID).
		First(&of).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &of, nil
}

func (r *lookupRepository) HasLink(ctx context.Context, productID, marketplaceID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProductMarketplaceLink{}).
		Where("product_id = ? AND marketplace_id = ?", productID, marketplaceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
