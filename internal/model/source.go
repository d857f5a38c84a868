package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// 事件类型枚举（与 MES 源系统一致）
const (
	EventRun   = "RUN"   // 生产区间，每个成品卷一行
	EventStop  = "STOP"  // 计划或技术停机
	EventBreak = "BREAK" // 断纸
)

// RUN 事件质量状态
const (
	StatusGood  = "GOOD"
	StatusScrap = "SCRAP"
)

// ValidEventType 事件类型是否在枚举内
func ValidEventType(t string) bool {
	return t == EventRun || t == EventStop || t == EventBreak
}

// PlanRow 计划表（planning.xlsx）的一行，适配层解析并校验后才进入核心
type PlanRow struct {
	Date               time.Time
	MachineID          string
	ArticleID          string
	TargetSpeed        float64
	TargetQuantityTons float64
}

// Validate 行级校验，失败的行由适配层丢弃并告警
func (r *PlanRow) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("计划行缺少日期")
	}
	if r.MachineID == "" {
		return fmt.Errorf("计划行缺少纸机ID")
	}
	if r.TargetQuantityTons < 0 || r.TargetSpeed < 0 {
		return fmt.Errorf("计划行数值为负: machine=%s date=%s", r.MachineID, r.Date.Format("2006-01-02"))
	}
	return nil
}

// ToEntity 转换为数据库模型
func (r *PlanRow) ToEntity() *ProductionPlan {
	return &ProductionPlan{
		Date:               datatypes.Date(r.Date),
		MachineID:          r.MachineID,
		ArticleID:          r.ArticleID,
		TargetQuantityTons: r.TargetQuantityTons,
		TargetSpeed:        r.TargetSpeed,
	}
}

// QualityRow 化验数据表（lab_data.xlsx）的一行
type QualityRow struct {
	Timestamp   time.Time
	MachineID   string
	ArticleID   string
	MoisturePct float64
	GSMMeasured float64
	StrengthKNm float64
}

func (r *QualityRow) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("化验行缺少取样时间")
	}
	if r.MachineID == "" {
		return fmt.Errorf("化验行缺少纸机ID")
	}
	return nil
}

func (r *QualityRow) ToEntity() *QualityMeasurement {
	return &QualityMeasurement{
		Timestamp:   r.Timestamp,
		MachineID:   r.MachineID,
		ArticleID:   r.ArticleID,
		MoisturePct: r.MoisturePct,
		GSMMeasured: r.GSMMeasured,
		StrengthKNm: r.StrengthKNm,
	}
}

// UtilityRow 能耗表（utilities.xlsx）的一行，每机每天至多一行
type UtilityRow struct {
	Date           time.Time
	MachineID      string
	WaterM3        float64
	ElectricityKwh float64
	SteamTons      float64
	FiberTons      float64
	AdditivesKg    float64
}

func (r *UtilityRow) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("能耗行缺少日期")
	}
	if r.MachineID == "" {
		return fmt.Errorf("能耗行缺少纸机ID")
	}
	if r.WaterM3 < 0 || r.ElectricityKwh < 0 || r.SteamTons < 0 || r.FiberTons < 0 || r.AdditivesKg < 0 {
		return fmt.Errorf("能耗行数值为负: machine=%s date=%s", r.MachineID, r.Date.Format("2006-01-02"))
	}
	return nil
}

func (r *UtilityRow) ToEntity() *UtilityConsumption {
	return &UtilityConsumption{
		Date:           datatypes.Date(r.Date),
		MachineID:      r.MachineID,
		WaterM3:        r.WaterM3,
		ElectricityKwh: r.ElectricityKwh,
		SteamTons:      r.SteamTons,
		FiberTons:      r.FiberTons,
		AdditivesKg:    r.AdditivesKg,
	}
}

// MESRawEvent MES REST 接口返回的原始事件（JSON），校验后转成 ProductionEvent
type MESRawEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds int       `json:"duration_seconds"`
	EventType       string    `json:"event_type"`
	Status          string    `json:"status"`
	WeightKg        float64   `json:"weight_kg"`
	AverageSpeed    float64   `json:"average_speed"`
	MachineID       string    `json:"machine_id"`
	ArticleID       string    `json:"article_id"`
	Description     string    `json:"description"`
}

func (r *MESRawEvent) Validate() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("事件缺少时间戳")
	}
	if !ValidEventType(r.EventType) {
		return fmt.Errorf("未知事件类型: %s", r.EventType)
	}
	if r.MachineID == "" {
		return fmt.Errorf("事件缺少纸机ID")
	}
	if r.DurationSeconds < 0 || r.WeightKg < 0 {
		return fmt.Errorf("事件数值为负: machine=%s ts=%s", r.MachineID, r.Timestamp.Format(time.RFC3339))
	}
	return nil
}

func (r *MESRawEvent) ToEntity() *ProductionEvent {
	return &ProductionEvent{
		Timestamp:       r.Timestamp,
		DurationSeconds: r.DurationSeconds,
		EventType:       r.EventType,
		Status:          r.Status,
		WeightKg:        r.WeightKg,
		AverageSpeed:    r.AverageSpeed,
		MachineID:       r.MachineID,
		ArticleID:       r.ArticleID,
		Description:     r.Description,
	}
}
