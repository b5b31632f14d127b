package model

import "encoding/json"

// Baselinker Connect API 原始报文结构，仅适配器内部使用

// BaselinkerProduct 订单内商品行
type BaselinkerProduct struct {
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	EAN       string  `json:"ean"`
	PriceBrutto float64 `json:"price_brutto"`
	TaxRate   float64 `json:"tax_rate"`
	Quantity  int     `json:"quantity"`
}

// BaselinkerOrder getOrders 单条订单
type BaselinkerOrder struct {
	OrderID          int64               `json:"order_id"`
	OrderSourceID    int                 `json:"order_source_id"`
	OrderSource      string              `json:"order_source"`
	OrderStatusID    int                 `json:"order_status_id"`
	DateAdd          int64               `json:"date_add"` // epoch 秒
	Currency         string              `json:"currency"`
	DeliveryMethod   string              `json:"delivery_method"`
	DeliveryPrice    float64             `json:"delivery_price"`
	DeliveryCountry  string              `json:"delivery_country"`
	DeliveryCity     string              `json:"delivery_city"`
	Products         []BaselinkerProduct `json:"products"`
}

// BaselinkerOrdersResponse getOrders 响应
type BaselinkerOrdersResponse struct {
	Status string            `json:"status"`
	Orders []BaselinkerOrder `json:"orders"`
}

// BaselinkerInventoryProduct getInventoryProductsData 单条商品
type BaselinkerInventoryProduct struct {
	SKU       string                 `json:"sku"`
	EAN       string                 `json:"ean"`
	Name      string                 `json:"name"`
	Images    map[string]string      `json:"images"`
	Stock     map[string]int         `json:"stock"`
	Prices    map[string]float64     `json:"prices"`
	TextFields map[string]json.RawMessage `json:"text_fields"`
	AveragePurchaseCost float64      `json:"average_cost"`
}

// BaselinkerProductsResponse getInventoryProductsData 响应
type BaselinkerProductsResponse struct {
	Status   string                                `json:"status"`
	Products map[string]BaselinkerInventoryProduct `json:"products"`
}
