package repository

import (
	"context"
	"fmt"
	"time"

	"MillSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SummaryRepository 日度 KPI 汇总仓储。汇总表是物化视图：
// Save 对同一 (machine, date) 永远是删一行插一行，从不原地更新
type SummaryRepository interface {
	// Save 单事务内删除同键旧行并插入新行，提交后任意观察点至多一行
	Save(ctx context.Context, summary *model.DailySummary) error
	// ForDay 某机某天的汇总行，不存在时返回 (nil, nil)
	ForDay(ctx context.Context, machineID string, day time.Time) (*model.DailySummary, error)
	// ForRange 某机在 [from, to] 闭区间内的汇总行，按日期升序；machineID 为空时不按机过滤
	ForRange(ctx context.Context, machineID string, from, to time.Time) ([]*model.DailySummary, error)
}

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository 创建 SummaryRepository 实例
func NewSummaryRepository(db *gorm.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

func (r *summaryRepository) Save(ctx context.Context, summary *model.DailySummary) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := tx.Where("machine_id = ? AND date = ?", summary.MachineID, summary.Date).
		Delete(&model.DailySummary{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("删除旧汇总失败: machine=%s: %w", summary.MachineID, err)
	}
	if err := tx.Create(summary).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("插入汇总失败: machine=%s: %w", summary.MachineID, err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

func (r *summaryRepository) ForDay(ctx context.Context, machineID string, day time.Time) (*model.DailySummary, error) {
	var summaries []*model.DailySummary
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND date = ?", machineID, datatypes.Date(day)).
		Limit(1).
		Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("查询汇总失败: machine=%s: %w", machineID, err)
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return summaries[0], nil
}

func (r *summaryRepository) ForRange(ctx context.Context, machineID string, from, to time.Time) ([]*model.DailySummary, error) {
	db := r.db.WithContext(ctx).Model(&model.DailySummary{}).
		Where("date >= ? AND date <= ?", datatypes.Date(from), datatypes.Date(to))
	if machineID != "" {
		db = db.Where("machine_id = ?", machineID)
	}

	var summaries []*model.DailySummary
	if err := db.Order("date ASC, machine_id ASC").Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("查询汇总区间失败: %w", err)
	}
	return summaries, nil
}
