package baselinker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"OrderSync/internal/adapter"
	"OrderSync/internal/config"
	"OrderSync/internal/interfaces"
	"OrderSync/internal/model"
	"OrderSync/internal/utils/httpclient"
)

func init() {
	adapter.Register(model.PlatformBaselinker, NewBaselinkerAdapter)
}

// Adapter Baselinker Connect 适配器。
// 统一入口POST /connector.php，method+parameters表单，X-BLToken认证。
type Adapter struct {
	cfg        *config.PlatformConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewBaselinkerAdapter(cfg *config.PlatformConfig, logger *logrus.Logger) interfaces.PlatformAdapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

func (b *Adapter) GetName() string {
	return "Baselinker"
}

func (b *Adapter) GetType() model.PlatformType {
	return model.PlatformBaselinker
}

// call 调用Connect方法，parameters整体序列化为JSON放进表单
func (b *Adapter) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("序列化%s参数失败: %w", method, err)
	}
	form := url.Values{}
	form.Set("method", method)
	form.Set("parameters", string(raw))

	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + "/connector.php"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("构造%s请求失败: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-BLToken", b.cfg.Token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求baselinker %s失败: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("baselinker %s返回%d: %s", method, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// FetchOrders 按date_from增量拉单，单页100条是接口硬上限。
// 过滤与翻页都用date_add这一个字段：满页时游标推到最后一单date_add+1，
// 字段不一致会重复拉取甚至原地打转。
func (b *Adapter) FetchOrders(ctx context.Context, from, to time.Time, table model.RateTable) ([]*model.OrderRecord, error) {
	var records []*model.OrderRecord
	cursor := from.Unix()
	for {
		var page model.BaselinkerOrdersResponse
		params := map[string]interface{}{
			"date_from":              cursor,
			"get_unconfirmed_orders": true,
		}
		if err := b.call(ctx, "getOrders", params, &page); err != nil {
			return nil, err
		}
		if page.Status != "SUCCESS" {
			return nil, fmt.Errorf("baselinker getOrders状态异常: %s", page.Status)
		}
		if len(page.Orders) == 0 {
			break
		}

		for i := range page.Orders {
			o := &page.Orders[i]
			added := time.Unix(o.DateAdd, 0).UTC()
			if added.After(to) {
				continue
			}
			records = append(records, b.convertOrder(o, table))
		}

		if len(page.Orders) < 100 {
			break
		}
		// 满页才翻下一页，游标推到最后一单的下一秒
		cursor = page.Orders[len(page.Orders)-1].DateAdd + 1
	}

	b.logger.WithFields(logrus.Fields{"count": len(records), "from": from, "to": to}).Info("baselinker订单拉取完成")
	return records, nil
}

func (b *Adapter) convertOrder(o *model.BaselinkerOrder, table model.RateTable) *model.OrderRecord {
	currency := strings.ToUpper(o.Currency)
	delivery := decimal.NewFromFloat(o.DeliveryPrice)
	total := delivery
	items := make([]model.OrderItemRecord, 0, len(o.Products))
	for _, p := range o.Products {
		price := decimal.NewFromFloat(p.PriceBrutto)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(p.Quantity))))
		sku := strings.TrimSpace(p.SKU)
		if sku == "" {
			sku = strings.TrimSpace(p.EAN)
		}
		items = append(items, model.OrderItemRecord{
			SKU:      sku,
			Name:     p.Name,
			Price:    price,
			PricePLN: table.ToPLN(price, currency),
			Quantity: p.Quantity,
			TaxRate:  decimal.NewFromFloat(p.TaxRate),
		})
	}

	return &model.OrderRecord{
		ExternalID:           strconv.FormatInt(o.OrderID, 10),
		MarketplaceExtID:     strconv.Itoa(o.OrderSourceID),
		MarketplaceName:      o.OrderSource,
		MarketplaceType:      strings.ToLower(o.OrderSource),
		PlatformOrigin:       b.GetName(),
		Currency:             currency,
		Status:               strconv.Itoa(o.OrderStatusID),
		Country:              o.DeliveryCountry,
		City:                 o.DeliveryCity,
		CreatedAt:            time.Unix(o.DateAdd, 0).UTC(),
		TotalGrossOriginal:   total,
		TotalGrossPLN:        table.ToPLN(total, currency),
		DeliveryCostOriginal: delivery,
		DeliveryCostPLN:      table.ToPLN(delivery, currency),
		DeliveryMethod:       o.DeliveryMethod,
		Items:                items,
	}
}

// FetchOffers 库存目录的商品清单作为在售offer，价格取默认价格组
func (b *Adapter) FetchOffers(ctx context.Context, table model.RateTable) ([]*model.OfferRecord, error) {
	products, err := b.fetchInventoryProducts(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*model.OfferRecord, 0, len(products))
	for id, p := range products {
		if strings.TrimSpace(p.SKU) == "" {
			b.logger.WithField("product_id", id).Warn("baselinker商品缺少sku，跳过")
			continue
		}
		qty := sumStock(p.Stock)
		var ean *string
		if strings.TrimSpace(p.EAN) != "" {
			e := p.EAN
			ean = &e
		}
		status, active := "inactive", false
		if qty > 0 {
			status, active = "active", true
		}
		records = append(records, &model.OfferRecord{
			ExternalID:       id,
			OriginID:         strconv.Itoa(b.cfg.InventoryID),
			Name:             p.Name,
			QuantitySelling:  qty,
			SKU:              p.SKU,
			EAN:              ean,
			MarketplaceExtID: strconv.Itoa(b.cfg.InventoryID),
			MarketplaceType:  "baselinker",
			MarketplaceName:  "Baselinker Inventory",
			PlatformOrigin:   b.GetName(),
			PriceWithTax:     table.ToPLN(firstPrice(p.Prices), "PLN"),
			StatusName:       status,
			IsActive:         active,
		})
	}
	b.logger.WithField("count", len(records)).Info("baselinker offer拉取完成")
	return records, nil
}

// FetchStocks 库存目录商品→库存快照记录
func (b *Adapter) FetchStocks(ctx context.Context) ([]*model.ProductStockRecord, error) {
	products, err := b.fetchInventoryProducts(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]*model.ProductStockRecord, 0, len(products))
	for id, p := range products {
		if strings.TrimSpace(p.SKU) == "" {
			b.logger.WithField("product_id", id).Warn("baselinker商品缺少sku，跳过")
			continue
		}
		records = append(records, &model.ProductStockRecord{
			SKU:              p.SKU,
			Name:             p.Name,
			ImageURL:         firstImage(p.Images),
			Kind:             productKind(p.TextFields),
			UnitPurchaseCost: decimal.NewFromFloat(p.AveragePurchaseCost),
			Stock:            sumStock(p.Stock),
		})
	}
	b.logger.WithField("count", len(records)).Info("baselinker库存拉取完成")
	return records, nil
}

// fetchInventoryProducts 先列清单拿ID，再分批取明细，单批最多1000个ID
func (b *Adapter) fetchInventoryProducts(ctx context.Context) (map[string]model.BaselinkerInventoryProduct, error) {
	var ids []string
	pageNo := 1
	for {
		var list struct {
			Status   string `json:"status"`
			Products []struct {
				ID int64 `json:"id"`
			} `json:"products"`
		}
		params := map[string]interface{}{
			"inventory_id": b.cfg.InventoryID,
			"page":         pageNo,
		}
		if err := b.call(ctx, "getInventoryProductsList", params, &list); err != nil {
			return nil, err
		}
		if list.Status != "SUCCESS" {
			return nil, fmt.Errorf("baselinker getInventoryProductsList状态异常: %s", list.Status)
		}
		if len(list.Products) == 0 {
			break
		}
		for _, p := range list.Products {
			ids = append(ids, strconv.FormatInt(p.ID, 10))
		}
		pageNo++
	}

	result := make(map[string]model.BaselinkerInventoryProduct, len(ids))
	for start := 0; start < len(ids); start += 1000 {
		end := start + 1000
		if end > len(ids) {
			end = len(ids)
		}
		var data model.BaselinkerProductsResponse
		params := map[string]interface{}{
			"inventory_id": b.cfg.InventoryID,
			"products":     ids[start:end],
		}
		if err := b.call(ctx, "getInventoryProductsData", params, &data); err != nil {
			return nil, err
		}
		if data.Status != "SUCCESS" {
			return nil, fmt.Errorf("baselinker getInventoryProductsData状态异常: %s", data.Status)
		}
		for id, p := range data.Products {
			result[id] = p
		}
	}
	return result, nil
}

func sumStock(stock map[string]int) int {
	total := 0
	for _, v := range stock {
		total += v
	}
	return total
}

// firstPrice 取编号最小的价格组，多价格组商品每次同步必须拿同一个价
func firstPrice(prices map[string]float64) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aerr := strconv.Atoi(keys[i])
		b, berr := strconv.Atoi(keys[j])
		if aerr == nil && berr == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return decimal.NewFromFloat(prices[keys[0]])
}

func firstImage(images map[string]string) string {
	for _, v := range images {
		return v
	}
	return ""
}

// productKind 商品种类藏在text_fields的extra字段里，取不到就空着
func productKind(fields map[string]json.RawMessage) string {
	raw, ok := fields["features"]
	if !ok {
		return ""
	}
	var features map[string]string
	if err := json.Unmarshal(raw, &features); err != nil {
		return ""
	}
	return features["kind"]
}
