package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderRecordNormalizeRounding(t *testing.T) {
	rec := &OrderRecord{
		ExternalID:       "A1",
		MarketplaceExtID: "7",
		Currency:         "eur",
		TotalGrossPLN:    decimal.RequireFromString("19.995"),
		Items: []OrderItemRecord{
			{SKU: "S1", Price: decimal.RequireFromString("19.994"), PricePLN: decimal.RequireFromString("19.995"), Quantity: 1},
		},
	}
	rec.Normalize()

	if rec.Currency != "EUR" {
		t.Fatalf("币种未大写: %s", rec.Currency)
	}
	if got := rec.TotalGrossPLN.String(); got != "20" {
		t.Fatalf("19.995应四舍五入到20，得到%s", got)
	}
	if got := rec.Items[0].Price.String(); got != "19.99" {
		t.Fatalf("19.994应舍到19.99，得到%s", got)
	}
	if got := rec.Items[0].PricePLN.String(); got != "20" {
		t.Fatalf("明细19.995应进到20，得到%s", got)
	}
}

func TestOrderRecordValidate(t *testing.T) {
	cases := []struct {
		name    string
		rec     OrderRecord
		wantErr bool
	}{
		{"合法", OrderRecord{ExternalID: "A1", MarketplaceExtID: "7"}, false},
		{"缺external_id", OrderRecord{MarketplaceExtID: "7"}, true},
		{"external_id全空白", OrderRecord{ExternalID: "   ", MarketplaceExtID: "7"}, true},
		{"缺marketplace_extid", OrderRecord{ExternalID: "A1"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("期望校验失败，得到nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("期望通过，得到: %v", err)
			}
		})
	}
}

func TestOrderItemRecordValidate(t *testing.T) {
	bad := OrderItemRecord{SKU: "S1", Quantity: 0}
	if err := bad.Validate(); err == nil {
		t.Fatal("数量为0应校验失败")
	}
	negative := OrderItemRecord{SKU: "S1", Quantity: -2}
	if err := negative.Validate(); err == nil {
		t.Fatal("数量为负应校验失败")
	}
	noSKU := OrderItemRecord{Quantity: 1}
	if err := noSKU.Validate(); err == nil {
		t.Fatal("缺sku应校验失败")
	}
}

func TestProductStockRecordValidate(t *testing.T) {
	if err := (&ProductStockRecord{SKU: "S1", Stock: -1}).Validate(); err == nil {
		t.Fatal("负库存应校验失败")
	}
	if err := (&ProductStockRecord{SKU: "S1", Stock: 0}).Validate(); err != nil {
		t.Fatalf("零库存是合法快照: %v", err)
	}
}

func TestRateTableToPLN(t *testing.T) {
	table := RateTable{
		"EUR": decimal.RequireFromString("4.27"),
	}

	got := table.ToPLN(decimal.RequireFromString("10"), "EUR")
	if got.String() != "42.7" {
		t.Fatalf("10 EUR应折42.7 PLN，得到%s", got)
	}

	// PLN与未知币种原样返回
	if got := table.ToPLN(decimal.RequireFromString("9.99"), "PLN"); got.String() != "9.99" {
		t.Fatalf("PLN不应折算，得到%s", got)
	}
	if got := table.ToPLN(decimal.RequireFromString("9.99"), "USD"); got.String() != "9.99" {
		t.Fatalf("表中没有的币种应原样返回，得到%s", got)
	}
}

func TestOrderRecordKey(t *testing.T) {
	rec := &OrderRecord{
		ExternalID:       "A1",
		MarketplaceExtID: "7",
		PlatformOrigin:   "Apilo",
		MarketplaceType:  "allegro",
		CreatedAt:        time.Now(),
	}
	want := "order:A1@7/Apilo/allegro"
	if rec.Key() != want {
		t.Fatalf("自然键描述不符: %s", rec.Key())
	}
}
