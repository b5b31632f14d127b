package apilo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
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
	adapter.Register(model.PlatformApilo, NewApiloAdapter)
}

// Adapter Apilo REST 适配器：OAuth token 维护 + 订单分页拉取
type Adapter struct {
	cfg        *config.PlatformConfig
	httpClient *http.Client
	logger     *logrus.Logger

	mu          sync.Mutex
	accessToken string
}

func NewApiloAdapter(cfg *config.PlatformConfig, logger *logrus.Logger) interfaces.PlatformAdapter {
	return &Adapter{
		cfg:         cfg,
		httpClient:  httpclient.NewHTTPClient(cfg, logger),
		logger:      logger,
		accessToken: cfg.Token,
	}
}

func (a *Adapter) GetName() string {
	return "Apilo"
}

func (a *Adapter) GetType() model.PlatformType {
	return model.PlatformApilo
}

// ensureToken 没有accessToken时用refreshToken换，首次部署用授权码换
func (a *Adapter) ensureToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accessToken != "" {
		return a.accessToken, nil
	}
	grantType, token := "refresh_token", a.cfg.RefreshToken
	if token == "" {
		grantType, token = "authorization_code", a.cfg.AuthCode
	}
	if token == "" {
		return "", fmt.Errorf("apilo缺少refresh_token与auth_code，无法换取访问令牌")
	}

	body, _ := json.Marshal(map[string]string{"grantType": grantType, "token": token})
	url := fmt.Sprintf("%s/rest/auth/token/", strings.TrimRight(a.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构造token请求失败: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(a.cfg.ClientID + ":" + a.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求apilo token失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("apilo token接口返回%d: %s", resp.StatusCode, string(raw))
	}

	var tokenResp model.ApiloTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("解析apilo token响应失败: %w", err)
	}
	a.accessToken = tokenResp.AccessToken
	a.logger.WithField("expire_at", tokenResp.AccessTokenExpireAt).Info("apilo访问令牌已刷新")
	return a.accessToken, nil
}

func (a *Adapter) getJSON(ctx context.Context, path string, out interface{}) error {
	token, err := a.ensureToken(ctx)
	if err != nil {
		return err
	}
	url := strings.TrimRight(a.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求apilo失败: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		// 令牌过期，清掉下次重换
		a.mu.Lock()
		a.accessToken = ""
		a.mu.Unlock()
		return fmt.Errorf("apilo令牌失效: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("apilo返回%d: %s", resp.StatusCode, string(raw))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// fetchPlatforms 拉平台账号列表，订单里只有platformAccountId，这里换名字和类型
func (a *Adapter) fetchPlatforms(ctx context.Context) (map[int]model.ApiloPlatform, error) {
	var saleResp model.ApiloSaleResponse
	if err := a.getJSON(ctx, "/rest/api/sale/", &saleResp); err != nil {
		return nil, fmt.Errorf("拉取apilo平台账号失败: %w", err)
	}
	platforms := make(map[int]model.ApiloPlatform, len(saleResp.Platforms))
	for _, p := range saleResp.Platforms {
		platforms[p.ID] = p
	}
	return platforms, nil
}

// FetchOrders offset分页拉取时间窗内订单并转换为规范记录
func (a *Adapter) FetchOrders(ctx context.Context, from, to time.Time, table model.RateTable) ([]*model.OrderRecord, error) {
	platforms, err := a.fetchPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	limit := a.cfg.PageLimit
	if limit <= 0 {
		limit = 512
	}

	var records []*model.OrderRecord
	offset := 0
	for {
		path := fmt.Sprintf("/rest/api/orders/?offset=%d&limit=%d&createdAfter=%s&createdBefore=%s",
			offset, limit,
			from.UTC().Format(time.RFC3339),
			to.UTC().Format(time.RFC3339))
		var page model.ApiloOrdersResponse
		if err := a.getJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("拉取apilo订单失败(offset=%d): %w", offset, err)
		}

		for i := range page.Orders {
			rec, err := a.convertOrder(&page.Orders[i], platforms, table)
			if err != nil {
				a.logger.WithField("order_id", page.Orders[i].ID).Warnf("apilo订单转换失败，跳过: %v", err)
				continue
			}
			records = append(records, rec)
		}

		offset += limit
		if len(page.Orders) < limit || offset >= page.TotalCount {
			break
		}
	}

	a.logger.WithFields(logrus.Fields{"count": len(records), "from": from, "to": to}).Info("apilo订单拉取完成")
	return records, nil
}

// convertOrder 原始订单→规范记录。type=1为商品行，type=2为运费行，
// 总额为全部行金额之和，运费单独累计。
func (a *Adapter) convertOrder(o *model.ApiloOrder, platforms map[int]model.ApiloPlatform, table model.RateTable) (*model.OrderRecord, error) {
	createdAt, err := time.Parse(time.RFC3339, o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("解析订单创建时间失败: %w", err)
	}

	mpName, mpType := "Apilo", "apilo"
	if p, ok := platforms[o.PlatformAccountID]; ok {
		mpName = p.Name
		if p.Alias != "" {
			mpType = strings.ToLower(p.Alias)
		}
	}

	currency := strings.ToUpper(o.OriginalCurrency)
	total := decimal.Zero
	delivery := decimal.Zero
	var items []model.OrderItemRecord
	for i := range o.OrderItems {
		it := &o.OrderItems[i]
		price, err := decimal.NewFromString(it.OriginalPriceWithTax)
		if err != nil {
			a.logger.WithField("item_id", it.ID).Warnf("解析明细价格失败，按0计: %v", err)
			price = decimal.Zero
		}
		line := price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)

		if it.Type == 2 {
			delivery = delivery.Add(line)
			continue
		}

		tax, err := decimal.NewFromString(it.Tax)
		if err != nil {
			tax = decimal.NewFromInt(23)
		}
		items = append(items, model.OrderItemRecord{
			SKU:      itemSKU(it),
			Name:     it.OriginalName,
			Price:    price,
			PricePLN: table.ToPLN(price, currency),
			Quantity: it.Quantity,
			TaxRate:  tax,
		})
	}

	return &model.OrderRecord{
		ExternalID:           o.ID,
		MarketplaceExtID:     strconv.Itoa(o.PlatformAccountID),
		MarketplaceName:      mpName,
		MarketplaceType:      mpType,
		PlatformOrigin:       a.GetName(),
		Currency:             currency,
		Status:               orderStatusName(o.Status),
		Country:              o.AddressCustomer.Country,
		City:                 o.AddressCustomer.City,
		CreatedAt:            createdAt,
		TotalGrossOriginal:   total,
		TotalGrossPLN:        table.ToPLN(total, currency),
		DeliveryCostOriginal: delivery,
		DeliveryCostPLN:      table.ToPLN(delivery, currency),
		Items:                items,
	}, nil
}

// FetchOffers Apilo侧在售商品不经此通道同步
func (a *Adapter) FetchOffers(ctx context.Context, table model.RateTable) ([]*model.OfferRecord, error) {
	_ = ctx
	_ = table
	return nil, fmt.Errorf("apilo适配器不支持offer同步")
}

// FetchStocks Apilo侧库存不经此通道同步
func (a *Adapter) FetchStocks(ctx context.Context) ([]*model.ProductStockRecord, error) {
	_ = ctx
	return nil, fmt.Errorf("apilo适配器不支持库存同步")
}

// itemSKU sku缺失时退回ean，再退回渠道侧编码
func itemSKU(it *model.ApiloOrderItem) string {
	if it.SKU != nil && strings.TrimSpace(*it.SKU) != "" {
		return strings.TrimSpace(*it.SKU)
	}
	if it.EAN != nil && strings.TrimSpace(*it.EAN) != "" {
		return strings.TrimSpace(*it.EAN)
	}
	return strings.TrimSpace(it.OriginalCode)
}

// orderStatusName Apilo订单状态码→可读状态
func orderStatusName(status int) string {
	names := map[int]string{
		1:  "new",
		6:  "packed",
		9:  "shipped",
		13: "delivered",
		18: "cancelled",
	}
	if name, ok := names[status]; ok {
		return name
	}
	return strconv.Itoa(status)
}
