package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"OrderSync/internal/config"
	"OrderSync/internal/model"
)

func TestStaticRates(t *testing.T) {
	table, err := NewStaticRates().Table(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !table["EUR"].Equal(decimal.RequireFromString("4.27")) {
		t.Fatalf("EUR兜底汇率不符: %s", table["EUR"])
	}
	if !table["HUF"].Equal(decimal.RequireFromString("0.011")) {
		t.Fatalf("HUF兜底汇率不符: %s", table["HUF"])
	}
}

func TestNBPRatesTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exchangerates/tables/A/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"table":"A","effectiveDate":"2026-08-28","rates":[
			{"currency":"euro","code":"EUR","mid":4.31},
			{"currency":"korona czeska","code":"CZK","mid":0.18},
			{"currency":"dolar","code":"USD","mid":3.64}
		]}]`))
	}))
	defer srv.Close()

	provider := NewNBPRates(&config.RatesConfig{
		BaseURL:    srv.URL,
		Currencies: []string{"EUR", "CZK"},
	}, quietLogger())

	table, err := provider.Table(context.Background())
	if err != nil {
		t.Fatalf("拉取汇率失败: %v", err)
	}
	if !table["EUR"].Equal(decimal.RequireFromString("4.31")) {
		t.Fatalf("EUR汇率不符: %s", table["EUR"])
	}
	if _, ok := table["USD"]; ok {
		t.Fatal("未配置的币种不应入表")
	}
}

type failingRates struct{}

func (failingRates) Table(ctx context.Context) (model.RateTable, error) {
	return nil, errors.New("boom")
}

func TestFallbackRates(t *testing.T) {
	provider := NewFallbackRates(failingRates{}, NewStaticRates(), quietLogger())
	table, err := provider.Table(context.Background())
	if err != nil {
		t.Fatalf("兜底不应报错: %v", err)
	}
	if !table["RON"].Equal(decimal.RequireFromString("0.84")) {
		t.Fatalf("应落到静态表: %s", table["RON"])
	}
}
