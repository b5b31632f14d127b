package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 规范记录：各平台适配器把上游原始报文转换成这里的统一结构后再交给对账引擎。
// 金额一律在 Normalize 时做两位小数四舍五入（half-up），下游不再二次取整。

// OrderItemRecord 规范订单明细
type OrderItemRecord struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	PricePLN decimal.Decimal `json:"price_pln"`
	Quantity int             `json:"quantity"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// Validate 校验单条明细，失败的明细跳过，不影响同单其他明细
func (it *OrderItemRecord) Validate() error {
	if strings.TrimSpace(it.SKU) == "" {
		return fmt.Errorf("明细缺少sku")
	}
	if it.Quantity <= 0 {
		return fmt.Errorf("明细数量非法: %d", it.Quantity)
	}
	return nil
}

// OrderRecord 规范订单
type OrderRecord struct {
	ExternalID           string            `json:"external_id"`
	MarketplaceExtID     string            `json:"marketplace_extid"`
	MarketplaceName      string            `json:"marketplace_name"`
	MarketplaceType      string            `json:"marketplace_type"`
	PlatformOrigin       string            `json:"platform_origin"`
	Currency             string            `json:"currency"`
	Status               string            `json:"status"`
	Country              string            `json:"country"`
	City                 string            `json:"city"`
	CreatedAt            time.Time         `json:"created_at"`
	TotalGrossOriginal   decimal.Decimal   `json:"total_gross_original"`
	TotalGrossPLN        decimal.Decimal   `json:"total_gross_pln"`
	DeliveryCostOriginal decimal.Decimal   `json:"delivery_cost_original"`
	DeliveryCostPLN      decimal.Decimal   `json:"delivery_cost_pln"`
	DeliveryMethod       string            `json:"delivery_method"`
	Items                []OrderItemRecord `json:"items"`
}

// Key 自然键描述，用于失败上报与日志回放
func (r *OrderRecord) Key() string {
	return fmt.Sprintf("order:%s@%s/%s/%s", r.ExternalID, r.MarketplaceExtID, r.PlatformOrigin, r.MarketplaceType)
}

// Normalize 入口归一化：币种大写、全部金额两位小数 half-up
func (r *OrderRecord) Normalize() {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.TotalGrossOriginal = r.TotalGrossOriginal.Round(2)
	r.TotalGrossPLN = r.TotalGrossPLN.Round(2)
	r.DeliveryCostOriginal = r.DeliveryCostOriginal.Round(2)
	r.DeliveryCostPLN = r.DeliveryCostPLN.Round(2)
	for i := range r.Items {
		r.Items[i].Price = r.Items[i].Price.Round(2)
		r.Items[i].PricePLN = r.Items[i].PricePLN.Round(2)
	}
}

// Validate 校验记录级自然键，空键一律拒绝，不允许落库
func (r *OrderRecord) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("订单缺少external_id")
	}
	if strings.TrimSpace(r.MarketplaceExtID) == "" {
		return fmt.Errorf("订单缺少marketplace_extid")
	}
	return nil
}

// OfferRecord 规范在售商品
type OfferRecord struct {
	ExternalID       string          `json:"external_id"`
	OriginID         string          `json:"origin_id"`
	Name             string          `json:"name"`
	StartedAt        *time.Time      `json:"started_at"`
	EndedAt          *time.Time      `json:"ended_at"`
	QuantitySelling  int             `json:"quantity_selling"`
	SKU              string          `json:"sku"`
	EAN              *string         `json:"ean"`
	MarketplaceExtID string          `json:"marketplace_extid"`
	MarketplaceType  string          `json:"marketplace_type"`
	MarketplaceName  string          `json:"marketplace_name"`
	PlatformOrigin   string          `json:"platform_origin"`
	PriceWithTax     decimal.Decimal `json:"price_with_tax"`
	StatusID         int             `json:"status_id"`
	StatusName       string          `json:"status_name"`
	IsActive         bool            `json:"is_active"`
}

func (r *OfferRecord) Key() string {
	return fmt.Sprintf("offer:%s/%s@%s/%s/%s", r.ExternalID, r.OriginID, r.MarketplaceExtID, r.PlatformOrigin, r.MarketplaceType)
}

func (r *OfferRecord) Normalize() {
	r.PriceWithTax = r.PriceWithTax.Round(2)
}

func (r *OfferRecord) Validate() error {
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("offer缺少external_id")
	}
	if strings.TrimSpace(r.SKU) == "" {
		return fmt.Errorf("offer缺少sku")
	}
	if strings.TrimSpace(r.MarketplaceExtID) == "" {
		return fmt.Errorf("offer缺少marketplace_extid")
	}
	return nil
}

// ProductStockRecord 规范商品库存快照
type ProductStockRecord struct {
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	ImageURL         string          `json:"image_url"`
	Kind             string          `json:"kind"`
	UnitPurchaseCost decimal.Decimal `json:"unit_purchase_cost"`
	Stock            int             `json:"stock"`
}

func (r *ProductStockRecord) Key() string {
	return fmt.Sprintf("stock:%s", r.SKU)
}

func (r *ProductStockRecord) Normalize() {
	r.UnitPurchaseCost = r.UnitPurchaseCost.Round(2)
}

func (r *ProductStockRecord) Validate() error {
	if strings.TrimSpace(r.SKU) == "" {
		return fmt.Errorf("库存记录缺少sku")
	}
	if r.Stock < 0 {
		return fmt.Errorf("库存数量非法: %d", r.Stock)
	}
	return nil
}
