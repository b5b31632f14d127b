package apilo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"OrderSync/internal/config"
	"OrderSync/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func strPtr(s string) *string { return &s }

func TestConvertOrderSplitsDeliveryLine(t *testing.T) {
	a := &Adapter{cfg: &config.PlatformConfig{}, logger: quietLogger()}
	table := model.RateTable{"EUR": decimal.RequireFromString("4.27")}

	order := &model.ApiloOrder{
		ID:                "AP-1",
		PlatformAccountID: 7,
		OriginalCurrency:  "eur",
		CreatedAt:         "2026-08-29T14:30:00+02:00",
		Status:            1,
		OrderItems: []model.ApiloOrderItem{
			{SKU: strPtr("SKU-1"), OriginalName: "Kubek", OriginalPriceWithTax: "10.00", Tax: "23", Quantity: 2, Type: 1},
			{OriginalName: "Dostawa", OriginalPriceWithTax: "5.00", Tax: "23", Quantity: 1, Type: 2},
		},
		AddressCustomer: model.ApiloAddress{City: "Berlin", Country: "DE"},
	}
	platforms := map[int]model.ApiloPlatform{
		7: {ID: 7, Name: "Allegro #7", Alias: "Allegro"},
	}

	rec, err := a.convertOrder(order, platforms, table)
	if err != nil {
		t.Fatalf("转换失败: %v", err)
	}

	// 总额含运费行，运费单独累计，明细只留商品行
	if !rec.TotalGrossOriginal.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("总额不符: %s", rec.TotalGrossOriginal)
	}
	if !rec.DeliveryCostOriginal.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("运费不符: %s", rec.DeliveryCostOriginal)
	}
	if len(rec.Items) != 1 {
		t.Fatalf("运费行不应进明细: %d", len(rec.Items))
	}
	if !rec.TotalGrossPLN.Equal(decimal.RequireFromString("106.75")) {
		t.Fatalf("PLN折算不符: %s", rec.TotalGrossPLN)
	}
	if rec.MarketplaceExtID != "7" || rec.MarketplaceType != "allegro" {
		t.Fatalf("渠道映射不符: %s/%s", rec.MarketplaceExtID, rec.MarketplaceType)
	}
	if rec.Status != "new" {
		t.Fatalf("状态映射不符: %s", rec.Status)
	}
}

func TestConvertOrderSKUFallback(t *testing.T) {
	a := &Adapter{cfg: &config.PlatformConfig{}, logger: quietLogger()}
	table := model.RateTable{}

	order := &model.ApiloOrder{
		ID:               "AP-2",
		OriginalCurrency: "PLN",
		CreatedAt:        "2026-08-29T10:00:00Z",
		OrderItems: []model.ApiloOrderItem{
			{EAN: strPtr("5901234123457"), OriginalCode: "X1", OriginalPriceWithTax: "1.00", Tax: "23", Quantity: 1, Type: 1},
			{OriginalCode: "X2", OriginalPriceWithTax: "1.00", Tax: "23", Quantity: 1, Type: 1},
		},
	}
	rec, err := a.convertOrder(order, nil, table)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Items[0].SKU != "5901234123457" {
		t.Fatalf("sku缺失应退回ean: %s", rec.Items[0].SKU)
	}
	if rec.Items[1].SKU != "X2" {
		t.Fatalf("ean也缺时退回渠道编码: %s", rec.Items[1].SKU)
	}
}

func TestFetchOrdersPagination(t *testing.T) {
	var gotAuth string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/api/sale/":
			json.NewEncoder(w).Encode(model.ApiloSaleResponse{
				Platforms: []model.ApiloPlatform{{ID: 7, Name: "Allegro #7", Alias: "Allegro"}},
			})
		case r.URL.Path == "/rest/api/orders/":
			gotAuth = r.Header.Get("Authorization")
			calls++
			offset := r.URL.Query().Get("offset")
			resp := model.ApiloOrdersResponse{TotalCount: 3}
			if offset == "0" {
				resp.Orders = []model.ApiloOrder{
					{ID: "AP-1", PlatformAccountID: 7, OriginalCurrency: "PLN", CreatedAt: "2026-08-29T10:00:00Z"},
					{ID: "AP-2", PlatformAccountID: 7, OriginalCurrency: "PLN", CreatedAt: "2026-08-29T11:00:00Z"},
				}
			} else {
				resp.Orders = []model.ApiloOrder{
					{ID: "AP-3", PlatformAccountID: 7, OriginalCurrency: "PLN", CreatedAt: "2026-08-29T12:00:00Z"},
				}
			}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &config.PlatformConfig{BaseURL: srv.URL, Timeout: 5, PageLimit: 2, Token: "T0"}
	a := NewApiloAdapter(cfg, quietLogger())

	to := time.Now()
	records, err := a.FetchOrders(context.Background(), to.AddDate(0, 0, -1), to, model.RateTable{})
	if err != nil {
		t.Fatalf("拉单失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("应拉到3单: %d", len(records))
	}
	if calls != 2 {
		t.Fatalf("应分2页拉取: %d", calls)
	}
	if gotAuth != "Bearer T0" {
		t.Fatalf("Bearer头不符: %s", gotAuth)
	}
}

func TestEnsureTokenRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/auth/token/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["grantType"] != "refresh_token" || body["token"] != "R1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(model.ApiloTokenResponse{AccessToken: "NEW", RefreshToken: "R2"})
	}))
	defer srv.Close()

	cfg := &config.PlatformConfig{BaseURL: srv.URL, Timeout: 5, RefreshToken: "R1", ClientID: "cid", ClientSecret: "sec"}
	a := NewApiloAdapter(cfg, quietLogger()).(*Adapter)

	token, err := a.ensureToken(context.Background())
	if err != nil {
		t.Fatalf("换token失败: %v", err)
	}
	if token != "NEW" {
		t.Fatalf("accessToken不符: %s", token)
	}

	// 第二次直接用缓存，不再走网络
	srv.Close()
	again, err := a.ensureToken(context.Background())
	if err != nil || again != "NEW" {
		t.Fatalf("应命中缓存token: %s %v", again, err)
	}
}
