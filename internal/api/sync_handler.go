package api

import (
	"fmt"
	"net/http"
	"time"

	"MillSync/internal/interfaces"
	"MillSync/internal/repository"
	"MillSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type SyncHandler struct {
	pipeline *service.PipelineService
	logger   *logrus.Logger
}

// NewSyncHandler 创建 SyncHandler（内部组装仓储与流水线服务）
func NewSyncHandler(db *gorm.DB, logger *logrus.Logger, eventSource interfaces.EventSource, tabular interfaces.TabularSource) *SyncHandler {
	repo := repository.NewProductionRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	metrics := service.NewMetricsService(repo, summaryRepo, logger)
	pipeline := service.NewPipelineService(repo, metrics, eventSource, tabular, logger)
	return &SyncHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// RunDateHandler 对单个日期执行完整装载
// POST /sync/:date （date 格式 2006-01-02）
func (h *SyncHandler) RunDateHandler(c *gin.Context) {
	dateStr := c.Param("date")
	day, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("日期格式非法: %s", dateStr)})
		return
	}

	if err := h.pipeline.RunFullLoad(c.Request.Context(), day); err != nil {
		h.logger.WithError(err).WithField("date", dateStr).Error("ETL装载失败")
		c.JSON(http.StatusInternalServerError, gin.H{
			"date":  dateStr,
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s 装载完成", dateStr),
	})
}

// RunRangeHandler 按天驱动一段闭区间内的装载
// POST /sync/range?from=2006-01-02&to=2006-01-05
func (h *SyncHandler) RunRangeHandler(c *gin.Context) {
	from, err1 := time.Parse(dateLayout, c.Query("from"))
	to, err2 := time.Parse(dateLayout, c.Query("to"))
	if err1 != nil || err2 != nil || to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from/to 参数非法"})
		return
	}

	if err := h.pipeline.RunRange(c.Request.Context(), from, to); err != nil {
		h.logger.WithError(err).Error("区间装载存在失败日期")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s ~ %s 装载完成", from.Format(dateLayout), to.Format(dateLayout)),
	})
}
