package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"OrderSync/internal/model"
	"OrderSync/internal/repository"
)

// MarketplaceSummary 单渠道销售汇总
type MarketplaceSummary struct {
	Marketplace string          `json:"marketplace" gorm:"column:marketplace"`
	Orders      int64           `json:"orders" gorm:"column:orders"`
	RevenuePLN  decimal.Decimal `json:"revenue_pln" gorm:"column:revenue_pln"`
}

// DailyReport 日销售报表
type DailyReport struct {
	From       time.Time            `json:"from"`
	To         time.Time            `json:"to"`
	Orders     int64                `json:"orders"`
	RevenuePLN decimal.Decimal      `json:"revenue_pln"`
	ByChannel  []MarketplaceSummary `json:"by_channel"`
}

// ReportService 基于订单事实表的只读汇总
type ReportService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewReportService(db *gorm.DB, logger *logrus.Logger) *ReportService {
	return &ReportService{db: db, logger: logger}
}

// Daily 统计回溯previousDays天内（按渠道侧下单时间）的订单量与PLN营收，
// 取消单不计入。
func (r *ReportService) Daily(ctx context.Context, previousDays int) (*DailyReport, error) {
	if previousDays <= 0 {
		previousDays = 1
	}
	to := repository.DayOf(time.Now()).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -previousDays)

	var rows []MarketplaceSummary
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select(`marketplace.name AS marketplace, COUNT(*) AS orders, COALESCE(SUM("order".total_gross_pln), 0) AS revenue_pln`).
		Joins(`JOIN marketplace ON marketplace.id = "order".marketplace_id`).
		Where(`"order".created_at >= ? AND "order".created_at < ?`, from, to).
		Where(`"order".status NOT IN ?`, []string{"cancelled", "canceled"}).
		Group("marketplace.name").
		Order("revenue_pln DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计日销售报表失败: %w", err)
	}

	report := &DailyReport{
		From:       from,
		To:         to,
		RevenuePLN: decimal.Zero,
		ByChannel:  rows,
	}
	for _, row := range rows {
		report.Orders += row.Orders
		report.RevenuePLN = report.RevenuePLN.Add(row.RevenuePLN)
	}
	return report, nil
}
