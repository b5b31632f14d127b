package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"OrderSync/internal/model"
)

var testDBSeq atomic.Int64

// newTestDB 每次调用一个全新的共享内存库，DSN带全局序号防止同名库串数据
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开内存库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Marketplace{},
		&model.Product{},
		&model.ProductMarketplaceLink{},
		&model.Order{},
		&model.OrderItem{},
		&model.Offer{},
		&model.PriceHistory{},
		&model.StockHistory{},
		&model.SyncRun{},
	); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return db
}

func TestUpsertMarketplaceIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	first := &model.Marketplace{ExternalID: "7", PlatformOrigin: "Apilo", Type: "allegro", Name: "Allegro #7"}
	if err := repo.UpsertMarketplace(ctx, first); err != nil {
		t.Fatalf("首次upsert失败: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("首次upsert后ID未回填")
	}

	// 同自然键重跑只刷新展示名，不产生新行
	second := &model.Marketplace{ExternalID: "7", PlatformOrigin: "Apilo", Type: "allegro", Name: "Allegro PL"}
	if err := repo.UpsertMarketplace(ctx, second); err != nil {
		t.Fatalf("重复upsert失败: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("自然键命中应回填同一ID: %d != %d", second.ID, first.ID)
	}

	var count int64
	db.Model(&model.Marketplace{}).Count(&count)
	if count != 1 {
		t.Fatalf("应只有1行，得到%d", count)
	}
	var saved model.Marketplace
	db.First(&saved, first.ID)
	if saved.Name != "Allegro PL" {
		t.Fatalf("展示名应被刷新: %s", saved.Name)
	}
}

func TestUpsertMarketplaceKeySeparation(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	// 同external_id不同type是两个不同渠道
	a := &model.Marketplace{ExternalID: "7", PlatformOrigin: "Apilo", Type: "allegro", Name: "A"}
	b := &model.Marketplace{ExternalID: "7", PlatformOrigin: "Apilo", Type: "amazon", Name: "B"}
	if err := repo.UpsertMarketplace(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertMarketplace(ctx, b); err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatal("不同type应产生不同渠道行")
	}
}

func TestEnsureProductKeepsExistingName(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	p1 := &model.Product{SKU: "SKU-1", Name: "原始名"}
	if err := repo.EnsureProduct(ctx, p1); err != nil {
		t.Fatal(err)
	}

	p2 := &model.Product{SKU: "SKU-1", Name: "新名字"}
	if err := repo.EnsureProduct(ctx, p2); err != nil {
		t.Fatal(err)
	}
	if p2.ID != p1.ID {
		t.Fatalf("同sku应回填同一ID: %d != %d", p2.ID, p1.ID)
	}

	var saved model.Product
	db.First(&saved, p1.ID)
	if saved.Name != "原始名" {
		t.Fatalf("EnsureProduct不应覆盖已有名称: %s", saved.Name)
	}
}

func TestUpsertProductNameOverwrite(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	if err := repo.UpsertProduct(ctx, &model.Product{SKU: "SKU-1", Name: "旧名", Kind: "Towar"}, false); err != nil {
		t.Fatal(err)
	}

	// 不覆盖名称时只刷新主数据字段
	p := &model.Product{SKU: "SKU-1", Name: "新名", Kind: "Komplet", UnitPurchaseCost: decimal.RequireFromString("3.50")}
	if err := repo.UpsertProduct(ctx, p, false); err != nil {
		t.Fatal(err)
	}
	var saved model.Product
	db.Where("sku = ?", "SKU-1").First(&saved)
	if saved.Name != "旧名" {
		t.Fatalf("nameOverwrite=false不应改名: %s", saved.Name)
	}
	if saved.Kind != "Komplet" {
		t.Fatalf("kind应被刷新: %s", saved.Kind)
	}

	if err := repo.UpsertProduct(ctx, &model.Product{SKU: "SKU-1", Name: "新名"}, true); err != nil {
		t.Fatal(err)
	}
	db.Where("sku = ?", "SKU-1").First(&saved)
	if saved.Name != "新名" {
		t.Fatalf("nameOverwrite=true应改名: %s", saved.Name)
	}
}

func TestEnsureLinkIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.EnsureLink(ctx, 1, 2); err != nil {
			t.Fatalf("第%d次EnsureLink失败: %v", i+1, err)
		}
	}
	var count int64
	db.Model(&model.ProductMarketplaceLink{}).Count(&count)
	if count != 1 {
		t.Fatalf("重复关联应只有1行，得到%d", count)
	}
}

func TestCreateOrderDuplicateKey(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	o1 := &model.Order{ExternalID: "A1", MarketplaceID: 1, TotalGrossOriginal: decimal.Zero, TotalGrossPLN: decimal.Zero}
	if err := repo.CreateOrder(ctx, o1); err != nil {
		t.Fatal(err)
	}

	o2 := &model.Order{ExternalID: "A1", MarketplaceID: 1, TotalGrossOriginal: decimal.Zero, TotalGrossPLN: decimal.Zero}
	err := repo.CreateOrder(ctx, o2)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("同自然键应报ErrDuplicateKey，得到: %v", err)
	}

	// 另一个渠道的同external_id是不同订单
	o3 := &model.Order{ExternalID: "A1", MarketplaceID: 2, TotalGrossOriginal: decimal.Zero, TotalGrossPLN: decimal.Zero}
	if err := repo.CreateOrder(ctx, o3); err != nil {
		t.Fatalf("不同渠道同external_id应可落库: %v", err)
	}
}

func TestLookupBlankNaturalKey(t *testing.T) {
	db := newTestDB(t)
	lookups := NewLookupRepository(db)
	ctx := context.Background()

	if _, err := lookups.FindMarketplace(ctx, "", "Apilo", "allegro"); !errors.Is(err, ErrBlankNaturalKey) {
		t.Fatalf("空键应报ErrBlankNaturalKey: %v", err)
	}
	if _, err := lookups.FindOrder(ctx, "  ", 1); !errors.Is(err, ErrBlankNaturalKey) {
		t.Fatalf("全空白键应报ErrBlankNaturalKey: %v", err)
	}
}

func TestLookupNotFoundReturnsNil(t *testing.T) {
	db := newTestDB(t)
	lookups := NewLookupRepository(db)
	ctx := context.Background()

	mp, err := lookups.FindMarketplace(ctx, "404", "Apilo", "allegro")
	if err != nil {
		t.Fatalf("未命中不应报错: %v", err)
	}
	if mp != nil {
		t.Fatal("未命中应返回nil")
	}

	p, err := lookups.FindProductBySKU(ctx, "NOPE")
	if err != nil || p != nil {
		t.Fatalf("未命中应返回(nil, nil): %v %v", p, err)
	}
}

func TestUpdateOfferMutableFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewReconcileRepository(db)
	ctx := context.Background()

	offer := &model.Offer{
		ExternalID: "OF-1", OriginID: "1", MarketplaceID: 1, ProductID: 1,
		Name: "原名", QuantitySelling: 5, Status: "active",
		PriceWithTax: decimal.RequireFromString("10.00"),
	}
	if err := repo.CreateOffer(ctx, offer); err != nil {
		t.Fatal(err)
	}

	offer.Name = "改名"
	offer.QuantitySelling = 0
	offer.Status = "inactive"
	offer.PriceWithTax = decimal.RequireFromString("12.50")
	if err := repo.UpdateOffer(ctx, offer); err != nil {
		t.Fatal(err)
	}

	var saved model.Offer
	db.First(&saved, offer.ID)
	if saved.Name != "改名" || saved.Status != "inactive" || saved.QuantitySelling != 0 {
		t.Fatalf("可变字段未刷新: %+v", saved)
	}
	if !saved.PriceWithTax.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("价格未刷新: %s", saved.PriceWithTax)
	}
	if saved.ExternalID != "OF-1" {
		t.Fatalf("自然键不应被改动: %s", saved.ExternalID)
	}
}
