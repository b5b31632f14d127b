package model

// PlatformType 上游聚合平台枚举
type PlatformType string

const (
	PlatformApilo      PlatformType = "apilo"
	PlatformBaselinker PlatformType = "baselinker"
)

// SyncKind 同步任务类型
type SyncKind string

const (
	SyncOrders SyncKind = "orders"
	SyncOffers SyncKind = "offers"
	SyncStocks SyncKind = "stocks"
)
