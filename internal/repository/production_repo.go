package repository

import (
	"context"
	"fmt"
	"time"

	"MillSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductionRepository 原始生产数据仓储：四张日粒度表的整段替换写入与按天查询。
// 写入协议统一为 replace-range：按批次中出现的自然键先删后插，单事务内完成，
// 因此同一天重复装载不会产生重复行或残留行。并发对同一 (machine, date) 调用
// 不在仓储层加锁，由调用方保证串行（违反时由数据库报错而不是悄悄合并）
type ProductionRepository interface {
	// ListMachineIDs 全部已注册纸机ID，升序；空结果说明主数据未播种
	ListMachineIDs(ctx context.Context) ([]string, error)
	// SeedMasterData 幂等写入纸机与产品主数据
	SeedMasterData(ctx context.Context, machines []*model.Machine, articles []*model.Article) error

	// ReplaceDayEvents 整段替换某台纸机某天的全部事件
	ReplaceDayEvents(ctx context.Context, machineID string, day time.Time, events []*model.ProductionEvent) error
	// ReplacePlans 按批次内出现的 (machine, date) 键整段替换计划行
	ReplacePlans(ctx context.Context, rows []model.PlanRow) error
	// ReplaceQuality 按批次内出现的日期整段替换化验行
	ReplaceQuality(ctx context.Context, rows []model.QualityRow) error
	// ReplaceUtilities 按批次内出现的 (machine, date) 键整段替换能耗行
	ReplaceUtilities(ctx context.Context, rows []model.UtilityRow) error

	// EventsForDay 某机某天全部事件，按时间升序
	EventsForDay(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error)
	// PlansForDay 某机某天全部计划行
	PlansForDay(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionPlan, error)
	// UtilityForDay 某机某天的能耗行，不存在时返回 (nil, nil)
	UtilityForDay(ctx context.Context, machineID string, day time.Time) (*model.UtilityConsumption, error)
	// QualityForDay 某机某天全部化验行
	QualityForDay(ctx context.Context, machineID string, day time.Time) ([]*model.QualityMeasurement, error)
}

type productionRepository struct {
	db *gorm.DB
}

// NewProductionRepository 创建 ProductionRepository 实例
func NewProductionRepository(db *gorm.DB) ProductionRepository {
	return &productionRepository{db: db}
}

// dayBounds 一天的时间窗 [00:00, 次日00:00)
func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}

// inTransaction 替换协议共用的事务外壳：删除与插入要么一起提交要么一起回滚
func (r *productionRepository) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
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

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

func (r *productionRepository) ListMachineIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Machine{}).
		Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("查询纸机列表失败: %w", err)
	}
	return ids, nil
}

func (r *productionRepository) SeedMasterData(ctx context.Context, machines []*model.Machine, articles []*model.Article) error {
	return r.inTransaction(ctx, func(tx *gorm.DB) error {
		if len(machines) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(machines).Error; err != nil {
				return fmt.Errorf("写入纸机主数据失败: %w", err)
			}
		}
		if len(articles) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(articles).Error; err != nil {
				return fmt.Errorf("写入产品主数据失败: %w", err)
			}
		}
		return nil
	})
}

func (r *productionRepository) ReplaceDayEvents(ctx context.Context, machineID string, day time.Time, events []*model.ProductionEvent) error {
	start, end := dayBounds(day)
	return r.inTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("machine_id = ? AND timestamp >= ? AND timestamp < ?", machineID, start, end).
			Delete(&model.ProductionEvent{}).Error; err != nil {
			return fmt.Errorf("删除旧事件失败: machine=%s date=%s: %w", machineID, start.Format("2006-01-02"), err)
		}
		if len(events) == 0 {
			return nil
		}
		if err := tx.Create(events).Error; err != nil {
			return fmt.Errorf("插入事件失败: machine=%s date=%s: %w", machineID, start.Format("2006-01-02"), err)
		}
		return nil
	})
}

// planKey 替换粒度的自然键
type planKey struct {
	machineID string
	date      string
}

func (r *productionRepository) ReplacePlans(ctx context.Context, rows []model.PlanRow) error {
	if len(rows) == 0 {
		return nil
	}

	keys := make(map[planKey]time.Time)
	entities := make([]*model.ProductionPlan, 0, len(rows))
	for i := range rows {
		keys[planKey{rows[i].MachineID, rows[i].Date.Format("2006-01-02")}] = rows[i].Date
		entities = append(entities, rows[i].ToEntity())
	}

	return r.inTransaction(ctx, func(tx *gorm.DB) error {
		for k, d := range keys {
			if err := tx.Where("machine_id = ? AND date = ?", k.machineID, datatypes.Date(d)).
				Delete(&model.ProductionPlan{}).Error; err != nil {
				return fmt.Errorf("删除旧计划失败: machine=%s date=%s: %w", k.machineID, k.date, err)
			}
		}
		if err := tx.Create(entities).Error; err != nil {
			return fmt.Errorf("插入计划失败: %w", err)
		}
		return nil
	})
}

func (r *productionRepository) ReplaceQuality(ctx context.Context, rows []model.QualityRow) error {
	if len(rows) == 0 {
		return nil
	}

	days := make(map[string]time.Time)
	entities := make([]*model.QualityMeasurement, 0, len(rows))
	for i := range rows {
		days[rows[i].Timestamp.Format("2006-01-02")] = rows[i].Timestamp
		entities = append(entities, rows[i].ToEntity())
	}

	return r.inTransaction(ctx, func(tx *gorm.DB) error {
		for ds, d := range days {
			start, end := dayBounds(d)
			if err := tx.Where("timestamp >= ? AND timestamp < ?", start, end).
				Delete(&model.QualityMeasurement{}).Error; err != nil {
				return fmt.Errorf("删除旧化验数据失败: date=%s: %w", ds, err)
			}
		}
		if err := tx.Create(entities).Error; err != nil {
			return fmt.Errorf("插入化验数据失败: %w", err)
		}
		return nil
	})
}

func (r *productionRepository) ReplaceUtilities(ctx context.Context, rows []model.UtilityRow) error {
	if len(rows) == 0 {
		return nil
	}

	keys := make(map[planKey]time.Time)
	entities := make([]*model.UtilityConsumption, 0, len(rows))
	for i := range rows {
		keys[planKey{rows[i].MachineID, rows[i].Date.Format("2006-01-02")}] = rows[i].Date
		entities = append(entities, rows[i].ToEntity())
	}

	return r.inTransaction(ctx, func(tx *gorm.DB) error {
		for k, d := range keys {
			if err := tx.Where("machine_id = ? AND date = ?", k.machineID, datatypes.Date(d)).
				Delete(&model.UtilityConsumption{}).Error; err != nil {
				return fmt.Errorf("删除旧能耗数据失败: machine=%s date=%s: %w", k.machineID, k.date, err)
			}
		}
		if err := tx.Create(entities).Error; err != nil {
			return fmt.Errorf("插入能耗数据失败: %w", err)
		}
		return nil
	})
}

func (r *productionRepository) EventsForDay(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error) {
	start, end := dayBounds(day)
	var events []*model.ProductionEvent
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND timestamp >= ? AND timestamp < ?", machineID, start, end).
		Order("timestamp ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("查询事件失败: machine=%s: %w", machineID, err)
	}
	return events, nil
}

func (r *productionRepository) PlansForDay(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionPlan, error) {
	var plans []*model.ProductionPlan
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND date = ?", machineID, datatypes.Date(day)).
		Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("查询计划失败: machine=%s: %w", machineID, err)
	}
	return plans, nil
}

func (r *productionRepository) UtilityForDay(ctx context.Context, machineID string, day time.Time) (*model.UtilityConsumption, error) {
	var utilities []*model.UtilityConsumption
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND date = ?", machineID, datatypes.Date(day)).
		Limit(1).
		Find(&utilities).Error; err != nil {
		return nil, fmt.Errorf("查询能耗失败: machine=%s: %w", machineID, err)
	}
	if len(utilities) == 0 {
		return nil, nil
	}
	return utilities[0], nil
}

func (r *productionRepository) QualityForDay(ctx context.Context, machineID string, day time.Time) ([]*model.QualityMeasurement, error) {
	start, end := dayBounds(day)
	var samples []*model.QualityMeasurement
	if err := r.db.WithContext(ctx).
		Where("machine_id = ? AND timestamp >= ? AND timestamp < ?", machineID, start, end).
		Order("timestamp ASC").
		Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("查询化验数据失败: machine=%s: %w", machineID, err)
	}
	return samples, nil
}
