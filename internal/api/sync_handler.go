package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"OrderSync/internal/config"
	"OrderSync/internal/model"
	"OrderSync/internal/service"
)

type SyncHandler struct {
	syncService *service.SyncService
	logger      *logrus.Logger
}

func NewSyncHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *SyncHandler {
	return &SyncHandler{
		syncService: service.NewSyncService(db, logger, cfg),
		logger:      logger,
	}
}

// SyncPlatformHandler 同步指定平台数据
// @Summary 同步平台订单/offer/库存
// @Param platform path string true "平台名称（apilo/baselinker）"
// @Param kind query string false "同步类型（orders/offers/stocks，默认orders）"
// @Success 200 {object} service.Aggregate
// @Failure 500 {object} map[string]string
// @Router /sync/platform/{platform} [post]
func (h *SyncHandler) SyncPlatformHandler(c *gin.Context) {
	platformName := c.Param("platform")
	kind := model.SyncKind(c.DefaultQuery("kind", string(model.SyncOrders)))

	agg, err := h.syncService.SyncPlatform(c.Request.Context(), platformName, kind)
	if err != nil {
		h.logger.Errorf("同步%s失败: %v", platformName, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platform": platformName,
		"kind":     kind,
		"result":   agg,
	})
}

// SyncAllHandler 同步所有启用平台
// POST /sync/all?kind=orders
func (h *SyncHandler) SyncAllHandler(c *gin.Context) {
	kind := model.SyncKind(c.DefaultQuery("kind", string(model.SyncOrders)))
	results := h.syncService.SyncAll(c.Request.Context(), kind)
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"results": results,
	})
}

// ListRunsHandler 最近的同步审计记录
// GET /api/sync/runs?limit=20
func (h *SyncHandler) ListRunsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.syncService.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("查询同步记录失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
