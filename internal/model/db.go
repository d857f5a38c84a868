package model

import (
	"time"

	"gorm.io/datatypes"
)

// Machine 纸机主数据（如 PM1、PM2），只在初始化时播种，基本不变
type Machine struct {
	ID       string `gorm:"column:id;primaryKey;type:varchar(20);comment:纸机编号（PM1/PM2）"`
	Name     string `gorm:"column:name;type:varchar(100);not null;comment:纸机名称"`
	Location string `gorm:"column:location;type:varchar(100);comment:所在车间"`
}

// Article 产品主数据（纸种目录，如 Kraftliner / Testliner / Fluting）
type Article struct {
	ID           string  `gorm:"column:id;primaryKey;type:varchar(50);comment:产品编号"`
	Name         string  `gorm:"column:name;type:varchar(100);not null;comment:产品名称"`
	ProductGroup string  `gorm:"column:product_group;type:varchar(50);comment:产品组（Liner/Medium）"`
	NominalGSM   float64 `gorm:"column:nominal_gsm;type:numeric(10,2);comment:标称克重（g/m2）"`
}

// ProductionEvent 生产事件日志（MES 数据），一行对应一个连续的生产/停机区间：
// RUN=生产（每个成品卷一行）、STOP=计划或技术停机、BREAK=断纸
type ProductionEvent struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Timestamp       time.Time `gorm:"column:timestamp;type:timestamp;not null;index;comment:区间开始时间"`
	DurationSeconds int       `gorm:"column:duration_seconds;type:int;comment:区间时长（秒）"`
	EventType       string    `gorm:"column:event_type;type:varchar(20);not null;comment:事件类型：RUN/STOP/BREAK"`
	Status          string    `gorm:"column:status;type:varchar(20);comment:RUN 专用：GOOD（合格）/SCRAP（废品）"`
	WeightKg        float64   `gorm:"column:weight_kg;type:numeric(12,2);comment:产量（kg，仅 RUN）"`
	AverageSpeed    float64   `gorm:"column:average_speed;type:numeric(10,1);comment:区间平均车速（m/min，仅 RUN）"`
	MachineID       string    `gorm:"column:machine_id;type:varchar(20);index;not null;comment:关联纸机ID"`
	ArticleID       string    `gorm:"column:article_id;type:varchar(50);comment:关联产品ID"`
	Description     string    `gorm:"column:description;type:varchar(255);comment:备注（如停机原因）"`
}

// ProductionPlan 日生产计划（Excel 来源），同一天同一台机可排多个纸种：
// 计划量可累加，计划车速按量加权
type ProductionPlan struct {
	ID                 uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Date               datatypes.Date `gorm:"column:date;type:date;not null;index;comment:计划日期"`
	MachineID          string         `gorm:"column:machine_id;type:varchar(20);index;not null;comment:关联纸机ID"`
	ArticleID          string         `gorm:"column:article_id;type:varchar(50);comment:关联产品ID"`
	TargetQuantityTons float64        `gorm:"column:target_quantity_tons;type:numeric(12,2);comment:计划产量（吨）"`
	TargetSpeed        float64        `gorm:"column:target_speed;type:numeric(10,1);comment:计划车速（m/min）"`
}

// QualityMeasurement 化验室质量抽检（Excel 来源），一天零到多条
type QualityMeasurement struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Timestamp   time.Time `gorm:"column:timestamp;type:timestamp;not null;comment:取样时间"`
	MachineID   string    `gorm:"column:machine_id;type:varchar(20);index;not null;comment:关联纸机ID"`
	ArticleID   string    `gorm:"column:article_id;type:varchar(50);comment:关联产品ID"`
	MoisturePct float64   `gorm:"column:moisture_pct;type:numeric(8,2);comment:实测水分（%）"`
	GSMMeasured float64   `gorm:"column:gsm_measured;type:numeric(10,1);comment:实测克重（g/m2）"`
	StrengthKNm float64   `gorm:"column:strength_knm;type:numeric(10,2);comment:实测抗张强度（kNm）"`
}

// UtilityConsumption 能源与原料日消耗（Excel 来源），每机每天至多一行
type UtilityConsumption struct {
	ID             uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Date           datatypes.Date `gorm:"column:date;type:date;not null;index;comment:消耗日期"`
	MachineID      string         `gorm:"column:machine_id;type:varchar(20);index;not null;comment:关联纸机ID"`
	WaterM3        float64        `gorm:"column:water_m3;type:numeric(12,2);comment:清水消耗（m3）"`
	ElectricityKwh float64        `gorm:"column:electricity_kwh;type:numeric(12,2);comment:电耗（kWh）"`
	SteamTons      float64        `gorm:"column:steam_tons;type:numeric(12,2);comment:蒸汽消耗（吨）"`
	FiberTons      float64        `gorm:"column:fiber_tons;type:numeric(12,2);comment:纤维原料投入（吨）"`
	AdditivesKg    float64        `gorm:"column:additives_kg;type:numeric(12,2);comment:助剂消耗（kg）"`
}

// DailySummary 日度 KPI 汇总（物化视图，不是数据源）：
// 每机每天恰好一行，由 metrics 服务整行删除后重建，永远可以从四张原始表重算
type DailySummary struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Date      datatypes.Date `gorm:"column:date;type:date;not null;index;comment:汇总日期"`
	MachineID string         `gorm:"column:machine_id;type:varchar(20);index;not null;comment:关联纸机ID"`

	OeePct          float64 `gorm:"column:oee_pct;type:numeric(8,2);comment:设备综合效率 OEE（%）"`
	AvailabilityPct float64 `gorm:"column:availability_pct;type:numeric(8,2);comment:时间开动率（%）"`
	PerformancePct  float64 `gorm:"column:performance_pct;type:numeric(8,2);comment:性能开动率（%，上限100）"`
	QualityPct      float64 `gorm:"column:quality_pct;type:numeric(8,2);comment:合格品率（%）"`

	TotalTons  float64 `gorm:"column:total_tons;type:numeric(12,2);comment:总产量（吨）"`
	GoodTons   float64 `gorm:"column:good_tons;type:numeric(12,2);comment:合格产量（吨）"`
	ScrapTons  float64 `gorm:"column:scrap_tons;type:numeric(12,2);comment:废品量（吨）"`
	TargetTons float64 `gorm:"column:target_tons;type:numeric(12,2);comment:计划产量（吨）"`

	TotalDowntimeMin float64 `gorm:"column:total_downtime_min;type:numeric(12,1);comment:总停机时间（分钟）"`
	BreakCount       int     `gorm:"column:break_count;type:int;comment:断纸次数"`
	AvgSpeedMMin     float64 `gorm:"column:avg_speed_m_min;type:numeric(10,1);comment:按产量加权的平均车速（m/min）"`
	TargetSpeedMMin  float64 `gorm:"column:target_speed_m_min;type:numeric(10,1);comment:按计划量加权的计划车速（m/min）"`

	AvgMoisturePct float64 `gorm:"column:avg_moisture_pct;type:numeric(8,2);comment:平均水分（%）"`
	AvgGSMMeasured float64 `gorm:"column:avg_gsm_measured;type:numeric(10,1);comment:平均实测克重（g/m2）"`

	SpecElectricityKwhT float64 `gorm:"column:spec_electricity_kwh_t;type:numeric(12,2);comment:吨纸电耗（kWh/t）"`
	SpecWaterM3T        float64 `gorm:"column:spec_water_m3_t;type:numeric(12,2);comment:吨纸水耗（m3/t）"`
	SpecSteamTT         float64 `gorm:"column:spec_steam_t_t;type:numeric(12,2);comment:吨纸汽耗（t/t）"`
	SpecFiberTT         float64 `gorm:"column:spec_fiber_t_t;type:numeric(12,2);comment:吨纸纤维耗（t/t）"`
}

func (Machine) TableName() string            { return "machines" }
func (Article) TableName() string            { return "articles" }
func (ProductionEvent) TableName() string    { return "production_events" }
func (ProductionPlan) TableName() string     { return "production_plans" }
func (QualityMeasurement) TableName() string { return "quality_measurements" }
func (UtilityConsumption) TableName() string { return "utility_consumption" }
func (DailySummary) TableName() string       { return "daily_summaries" }
