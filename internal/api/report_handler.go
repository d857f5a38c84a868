package api

import (
	"net/http"
	"time"

	"MillSync/internal/interfaces"
	"MillSync/internal/model"
	"MillSync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportHandler 提供给看板前端的只读查询接口（图表/PDF 渲染在前端，不在本服务）
type ReportHandler struct {
	db          *gorm.DB
	summaryRepo repository.SummaryRepository
	eventSource interfaces.EventSource
	logger      *logrus.Logger
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(db *gorm.DB, logger *logrus.Logger, eventSource interfaces.EventSource) *ReportHandler {
	return &ReportHandler{
		db:          db,
		summaryRepo: repository.NewSummaryRepository(db),
		eventSource: eventSource,
		logger:      logger,
	}
}

// ListMachines 纸机主数据列表
// GET /api/machines
func (h *ReportHandler) ListMachines(c *gin.Context) {
	var machines []*model.Machine
	if err := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&machines).Error; err != nil {
		h.logger.WithError(err).Error("查询纸机列表失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, machines)
}

// ListAvailableDates 某台纸机在事件源中有数据的日期
// GET /api/machines/:id/dates
func (h *ReportHandler) ListAvailableDates(c *gin.Context) {
	machineID := c.Param("id")

	dates, err := h.eventSource.AvailableDates(c.Request.Context(), machineID)
	if err != nil {
		h.logger.WithError(err).WithField("machine_id", machineID).Error("查询可用日期失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	c.JSON(http.StatusOK, out)
}

// ListSummaries 查询日度 KPI 汇总
// GET /api/summaries?machine=PM1&from=2006-01-02&to=2006-01-05
func (h *ReportHandler) ListSummaries(c *gin.Context) {
	machineID := c.Query("machine")
	from, err1 := time.Parse(dateLayout, c.Query("from"))
	to, err2 := time.Parse(dateLayout, c.Query("to"))
	if err1 != nil || err2 != nil || to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from/to 参数非法"})
		return
	}

	summaries, err := h.summaryRepo.ForRange(c.Request.Context(), machineID, from, to)
	if err != nil {
		h.logger.WithError(err).Error("查询KPI汇总失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summaries)
}
