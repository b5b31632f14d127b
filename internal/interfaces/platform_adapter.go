package interfaces

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"OrderSync/internal/config"
	"OrderSync/internal/model"
)

// PlatformAdapter 所有上游平台必须实现的核心接口
// 适配器负责认证、分页、限流，并把原始报文转换为规范记录；引擎只消费规范记录
type PlatformAdapter interface {
	GetName() string             // 平台展示名
	GetType() model.PlatformType // 平台类型（配置键）
	// FetchOrders 拉取时间窗内的订单并转换为规范记录，PLN金额用汇率表换算后填好
	FetchOrders(ctx context.Context, from, to time.Time, table model.RateTable) ([]*model.OrderRecord, error)
	// FetchOffers 拉取当前在售商品
	FetchOffers(ctx context.Context, table model.RateTable) ([]*model.OfferRecord, error)
	// FetchStocks 拉取商品库存快照
	FetchStocks(ctx context.Context) ([]*model.ProductStockRecord, error)
}

// Factory 平台适配器工厂函数签名
// 入参：平台配置、日志实例
// 出参：实现PlatformAdapter接口的适配器实例
type Factory func(cfg *config.PlatformConfig, logger *logrus.Logger) PlatformAdapter
