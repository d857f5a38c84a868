package mes

import (
	"context"
	"fmt"
	"time"

	"MillSync/internal/config"
	"MillSync/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sourceEvent MES 库 events 表的只读映射（源系统 schema，不是本库的 production_events）
type sourceEvent struct {
	ID              uint64    `gorm:"column:id;primaryKey"`
	Timestamp       time.Time `gorm:"column:timestamp"`
	DurationSeconds int       `gorm:"column:duration_seconds"`
	EventType       string    `gorm:"column:event_type"`
	Status          string    `gorm:"column:status"`
	WeightKg        float64   `gorm:"column:weight_kg"`
	AverageSpeed    float64   `gorm:"column:average_speed"`
	MachineID       string    `gorm:"column:machine_id"`
	ArticleID       string    `gorm:"column:article_id"`
	Description     string    `gorm:"column:description"`
}

func (sourceEvent) TableName() string { return "events" }

// Adapter 直连 MES 库的事件源适配器（只读）
type Adapter struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewAdapter 按 mes.dsn 建立 MES 库只读连接
func NewAdapter(cfg *config.MESConfig, logger *logrus.Logger) (*Adapter, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接MES库失败: %w", err)
	}
	return &Adapter{db: db, logger: logger}, nil
}

// FetchEvents 拉取某机某天的全部事件，按时间戳升序；当天无数据返回空切片
func (a *Adapter) FetchEvents(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var rows []*sourceEvent
	if err := a.db.WithContext(ctx).
		Where("machine_id = ? AND timestamp >= ? AND timestamp < ?", machineID, start, end).
		Order("timestamp ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("拉取MES事件失败: machine=%s date=%s: %w", machineID, start.Format("2006-01-02"), err)
	}

	events := make([]*model.ProductionEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, &model.ProductionEvent{
			Timestamp:       row.Timestamp,
			DurationSeconds: row.DurationSeconds,
			EventType:       row.EventType,
			Status:          row.Status,
			WeightKg:        row.WeightKg,
			AverageSpeed:    row.AverageSpeed,
			MachineID:       row.MachineID,
			ArticleID:       row.ArticleID,
			Description:     row.Description,
		})
	}

	a.logger.WithFields(logrus.Fields{
		"machine_id": machineID,
		"date":       start.Format("2006-01-02"),
		"count":      len(events),
	}).Debug("MES事件拉取完成")
	return events, nil
}

// AvailableDates 该纸机在 MES 库中有事件的日期列表，升序
func (a *Adapter) AvailableDates(ctx context.Context, machineID string) ([]time.Time, error) {
	var dates []time.Time
	if err := a.db.WithContext(ctx).Model(&sourceEvent{}).
		Where("machine_id = ?", machineID).
		Distinct("DATE(timestamp)").
		Order("DATE(timestamp) ASC").
		Pluck("DATE(timestamp)", &dates).Error; err != nil {
		return nil, fmt.Errorf("查询MES可用日期失败: machine=%s: %w", machineID, err)
	}
	return dates, nil
}
