package model

// Apilo REST API 原始报文结构，仅适配器内部使用

// ApiloTokenResponse /rest/auth/token/ 响应
type ApiloTokenResponse struct {
	AccessToken          string `json:"accessToken"`
	RefreshToken         string `json:"refreshToken"`
	AccessTokenExpireAt  string `json:"accessTokenExpireAt"`
	RefreshTokenExpireAt string `json:"refreshTokenExpireAt"`
}

// ApiloOrderItem 订单明细，type=1 商品行、type=2 运费行
type ApiloOrderItem struct {
	ID                    int64   `json:"id"`
	IDExternal            *string `json:"idExternal"`
	EAN                   *string `json:"ean"`
	SKU                   *string `json:"sku"`
	OriginalName          string  `json:"originalName"`
	OriginalCode          string  `json:"originalCode"`
	OriginalPriceWithTax  string  `json:"originalPriceWithTax"`
	OriginalPriceWoTax    string  `json:"originalPriceWithoutTax"`
	Quantity              int     `json:"quantity"`
	Tax                   string  `json:"tax"`
	Status                int     `json:"status"`
	Type                  int     `json:"type"`
}

// ApiloAddress 客户地址（只取 city/country）
type ApiloAddress struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// ApiloOrder /rest/api/orders/ 单条订单
type ApiloOrder struct {
	ID                string           `json:"id"`
	IDExternal        string           `json:"idExternal"`
	PlatformID        int              `json:"platformId"`
	PlatformAccountID int              `json:"platformAccountId"`
	OriginalCurrency  string           `json:"originalCurrency"`
	CreatedAt         string           `json:"createdAt"`
	Status            int              `json:"status"`
	OrderItems        []ApiloOrderItem `json:"orderItems"`
	AddressCustomer   ApiloAddress     `json:"addressCustomer"`
}

// ApiloOrdersResponse 订单分页响应
type ApiloOrdersResponse struct {
	Orders     []ApiloOrder `json:"orders"`
	TotalCount int          `json:"totalCount"`
}

// ApiloPlatform /rest/api/sale 平台账号条目
type ApiloPlatform struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Alias       string `json:"alias"`
	Type        int    `json:"type"`
	Description string `json:"description"`
}

// ApiloSaleResponse 平台账号列表响应
type ApiloSaleResponse struct {
	Platforms  []ApiloPlatform `json:"platforms"`
	TotalCount int             `json:"totalCount"`
}
