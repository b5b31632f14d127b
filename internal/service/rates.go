package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"OrderSync/internal/config"
	"OrderSync/internal/model"
)

// RateProvider 汇率表提供方，统一折算为 PLN
type RateProvider interface {
	Table(ctx context.Context) (model.RateTable, error)
}

// StaticRates 静态兜底汇率：NBP不可用时保证订单折算不中断
type StaticRates struct{}

func NewStaticRates() *StaticRates {
	return &StaticRates{}
}

func (s *StaticRates) Table(ctx context.Context) (model.RateTable, error) {
	_ = ctx
	return model.RateTable{
		"CZK": decimal.RequireFromString("0.17"),
		"EUR": decimal.RequireFromString("4.27"),
		"HUF": decimal.RequireFromString("0.011"),
		"RON": decimal.RequireFromString("0.84"),
	}, nil
}

// NBPRates 波兰央行A表中间价
type NBPRates struct {
	baseURL    string
	currencies []string
	client     *http.Client
	logger     *logrus.Logger
}

func NewNBPRates(cfg *config.RatesConfig, logger *logrus.Logger) *NBPRates {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &NBPRates{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		currencies: cfg.Currencies,
		client:     &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:     logger,
	}
}

type nbpTable struct {
	Table         string `json:"table"`
	EffectiveDate string `json:"effectiveDate"`
	Rates         []struct {
		Currency string          `json:"currency"`
		Code     string          `json:"code"`
		Mid      decimal.Decimal `json:"mid"`
	} `json:"rates"`
}

func (n *NBPRates) Table(ctx context.Context) (model.RateTable, error) {
	url := fmt.Sprintf("%s/exchangerates/tables/A/?format=json", n.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构造NBP请求失败: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求NBP汇率失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("NBP返回非200状态: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var tables []nbpTable
	if err := json.NewDecoder(resp.Body).Decode(&tables); err != nil {
		return nil, fmt.Errorf("解析NBP响应失败: %w", err)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("NBP响应无汇率表")
	}

	wanted := make(map[string]bool, len(n.currencies))
	for _, code := range n.currencies {
		wanted[strings.ToUpper(code)] = true
	}

	table := model.RateTable{}
	for _, r := range tables[0].Rates {
		code := strings.ToUpper(r.Code)
		if len(wanted) > 0 && !wanted[code] {
			continue
		}
		table[code] = r.Mid
	}
	n.logger.WithFields(logrus.Fields{
		"date":  tables[0].EffectiveDate,
		"count": len(table),
	}).Info("NBP汇率表已更新")
	return table, nil
}

// FallbackRates 先取主源，失败降级到静态表
type FallbackRates struct {
	primary  RateProvider
	fallback RateProvider
	logger   *logrus.Logger
}

func NewFallbackRates(primary, fallback RateProvider, logger *logrus.Logger) *FallbackRates {
	return &FallbackRates{primary: primary, fallback: fallback, logger: logger}
}

func (f *FallbackRates) Table(ctx context.Context) (model.RateTable, error) {
	table, err := f.primary.Table(ctx)
	if err == nil {
		return table, nil
	}
	f.logger.WithError(err).Warn("主汇率源不可用，使用静态兜底汇率")
	return f.fallback.Table(ctx)
}
