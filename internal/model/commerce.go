package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Marketplace 销售渠道账号表（同一平台可有多个账号，如 Allegro #7）
// 自然键 = (external_id, platform_origin, type)，三者共同唯一，缺一会把不同渠道混为一条
type Marketplace struct {
	ID             uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalID     string `gorm:"column:external_id;type:varchar(64);not null;uniqueIndex:uq_marketplace_identity"`
	PlatformOrigin string `gorm:"column:platform_origin;type:varchar(64);not null;uniqueIndex:uq_marketplace_identity"` // 上游聚合平台，如 Apilo/Baselinker
	Type           string `gorm:"column:type;type:varchar(32);not null;uniqueIndex:uq_marketplace_identity"`            // 渠道类型，如 allegro/amazon
	Name           string `gorm:"column:name;type:varchar(128);index"`                                                  // 展示名，可变
}

func (Marketplace) TableName() string { return "marketplace" }

// Product 商品主数据，sku 全局唯一
type Product struct {
	ID               uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	SKU              string          `gorm:"column:sku;type:varchar(128);not null;uniqueIndex"`
	Name             string          `gorm:"column:name;type:varchar(255)"`
	ImageURL         string          `gorm:"column:image_url;type:varchar(512)"`
	Kind             string          `gorm:"column:kind;type:varchar(64)"` // 商品种类，如 Komplet/Towar
	UnitPurchaseCost decimal.Decimal `gorm:"column:unit_purchase_cost;type:numeric(10,2)"`
}

func (Product) TableName() string { return "product" }

// ProductMarketplaceLink 商品-渠道多对多关联，复合主键，只增不改
type ProductMarketplaceLink struct {
	ProductID     uint64 `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	MarketplaceID uint64 `gorm:"column:marketplace_id;primaryKey;autoIncrement:false"`
}

func (ProductMarketplaceLink) TableName() string { return "product_marketplace" }

// Order 订单事实表，自然键 = (external_id, marketplace_id)
// 入库后不可变：重复摄入同一订单不做任何更新
type Order struct {
	ID                   uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalID           string          `gorm:"column:external_id;type:varchar(64);not null;index;uniqueIndex:uq_order_identity"`
	MarketplaceID        uint64          `gorm:"column:marketplace_id;type:bigint;not null;uniqueIndex:uq_order_identity"`
	CreatedAt            time.Time       `gorm:"column:created_at;type:timestamp;not null;index"` // 订单在渠道侧的创建时间
	TotalGrossOriginal   decimal.Decimal `gorm:"column:total_gross_original;type:numeric(10,2);not null"`
	TotalGrossPLN        decimal.Decimal `gorm:"column:total_gross_pln;type:numeric(10,2);not null"`
	DeliveryCostOriginal decimal.Decimal `gorm:"column:delivery_cost_original;type:numeric(10,2)"`
	DeliveryCostPLN      decimal.Decimal `gorm:"column:delivery_cost_pln;type:numeric(10,2)"`
	DeliveryMethod       string          `gorm:"column:delivery_method;type:varchar(255)"`
	Currency             string          `gorm:"column:currency;type:varchar(3);default:'PLN'"`
	Status               string          `gorm:"column:status;type:varchar(100)"`
	Country              string          `gorm:"column:country;type:varchar(100)"`
	City                 string          `gorm:"column:city;type:varchar(100)"`
}

func (Order) TableName() string { return "order" }

// OrderItem 订单明细，仅随新订单一起创建
type OrderItem struct {
	ID        uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   uint64          `gorm:"column:order_id;type:bigint;not null;index"`
	ProductID uint64          `gorm:"column:product_id;type:bigint;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"` // 下单时单件含税价（原币种）
	PricePLN  decimal.Decimal `gorm:"column:price_pln;type:numeric(10,2);not null"`
	Quantity  int             `gorm:"column:quantity;type:int;default:1"`
	TaxRate   decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);default:23"` // VAT 百分比
}

func (OrderItem) TableName() string { return "order_item" }

// Offer 渠道在售商品（listing），自然键 = (external_id, origin_id, marketplace_id)
// 与 Order 相反，Offer 是活的列表，重复摄入会更新可变字段
type Offer struct {
	ID              uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalID      string          `gorm:"column:external_id;type:varchar(64);not null;index;uniqueIndex:uq_offer_identity"`
	OriginID        string          `gorm:"column:origin_id;type:varchar(64);not null;uniqueIndex:uq_offer_identity"`
	MarketplaceID   uint64          `gorm:"column:marketplace_id;type:bigint;not null;uniqueIndex:uq_offer_identity"`
	ProductID       uint64          `gorm:"column:product_id;type:bigint;not null;index"`
	Name            string          `gorm:"column:name;type:varchar(255);not null"`
	EAN             *string         `gorm:"column:ean;type:varchar(100)"`
	StartedAt       *time.Time      `gorm:"column:started_at;type:timestamp;index"`
	EndedAt         *time.Time      `gorm:"column:ended_at;type:timestamp"`
	QuantitySelling int             `gorm:"column:quantity_selling;type:int;not null;default:0"`
	Status          string          `gorm:"column:status;type:varchar(100);default:'active'"`
	PriceWithTax    decimal.Decimal `gorm:"column:price_with_tax;type:numeric(10,2);not null"`
}

func (Offer) TableName() string { return "offer" }

// PriceHistory 价格快照，每 (product, marketplace, 日) 仅保留当日最新一条
type PriceHistory struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID     uint64          `gorm:"column:product_id;type:bigint;not null;uniqueIndex:uq_price_day"`
	MarketplaceID uint64          `gorm:"column:marketplace_id;type:bigint;not null;uniqueIndex:uq_price_day"`
	Date          time.Time       `gorm:"column:date;type:timestamp;not null;index;uniqueIndex:uq_price_day"` // 截断到日
	PricePLN      decimal.Decimal `gorm:"column:price_pln;type:numeric(10,2);not null"`
}

func (PriceHistory) TableName() string { return "price_history" }

// StockHistory 库存快照，每 (product, 日) 一条，重复跑覆盖
type StockHistory struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID uint64    `gorm:"column:product_id;type:bigint;not null;uniqueIndex:uq_stock_day"`
	Date      time.Time `gorm:"column:date;type:timestamp;not null;index;uniqueIndex:uq_stock_day"`
	Stock     int       `gorm:"column:stock;type:int;not null"`
}

func (StockHistory) TableName() string { return "stock_history" }
