package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"OrderSync/internal/service"
)

// ReportHandler 销售报表查询接口
type ReportHandler struct {
	reportService *service.ReportService
	logger        *logrus.Logger
}

func NewReportHandler(db *gorm.DB, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: service.NewReportService(db, logger),
		logger:        logger,
	}
}

// DailyReport 日销售报表
// GET /api/reports/daily?previous_days=1
func (h *ReportHandler) DailyReport(c *gin.Context) {
	previousDays, _ := strconv.Atoi(c.DefaultQuery("previous_days", "1"))

	report, err := h.reportService.Daily(c.Request.Context(), previousDays)
	if err != nil {
		h.logger.WithError(err).Error("日销售报表查询失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}
