// 演示数据播种工具：写入纸机/产品主数据，生成三个示例工作簿，
// 并向 MES 库灌入一段逼真的 30 天生产事件日志（RUN/STOP/BREAK 铺满 24 小时）。
// 随机性只存在于这里，核心服务本身完全确定
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"MillSync/internal/config"
	"MillSync/internal/model"
	"MillSync/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const eventIntervalMinutes = 15

// sourceEvent MES 库 events 表（与 adapter/mes 的只读映射同构）
type sourceEvent struct {
	ID              uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp       time.Time `gorm:"column:timestamp;index"`
	DurationSeconds int       `gorm:"column:duration_seconds"`
	EventType       string    `gorm:"column:event_type;type:varchar(20)"`
	Status          string    `gorm:"column:status;type:varchar(20)"`
	WeightKg        float64   `gorm:"column:weight_kg"`
	AverageSpeed    float64   `gorm:"column:average_speed"`
	MachineID       string    `gorm:"column:machine_id;type:varchar(20);index"`
	ArticleID       string    `gorm:"column:article_id;type:varchar(50)"`
	Description     string    `gorm:"column:description;type:varchar(255)"`
}

func (sourceEvent) TableName() string { return "events" }

// articleSpec 纸种基准参数：克重越高车速越低、日产量越高
type articleSpec struct {
	id    string
	speed float64 // m/min
	tons  float64 // 日计划产量
}

var articleSpecs = []articleSpec{
	{"KL_150", 800, 135},
	{"KL_175", 750, 150},
	{"TL_100", 920, 110},
	{"TL_140", 850, 130},
	{"WTL_120", 880, 120},
	{"FL_90", 950, 100},
}

var machineCapacity = map[string]float64{
	"PM1": 1.00,
	"PM2": 0.96, // PM2 较旧，产能略低
}

var stopReasons = []string{
	"计划检修", "浆料不足", "技术故障", "传感器清洗", "换辊", "烘缸调整",
}

func main() {
	days := flag.Int("days", 30, "生成多少天的演示数据")
	startStr := flag.String("start", "", "起始日期（2006-01-02），默认今天往前推 days 天")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	start := time.Now().AddDate(0, 0, -*days)
	if *startStr != "" {
		start, err = time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Fatalf("起始日期非法: %v", err)
		}
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	// 1. 主库：建表 + 播种主数据
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("连接PostgreSQL失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Machine{}, &model.Article{}, &model.ProductionEvent{},
		&model.ProductionPlan{}, &model.QualityMeasurement{},
		&model.UtilityConsumption{}, &model.DailySummary{},
	); err != nil {
		log.Fatalf("主库迁移失败: %v", err)
	}

	repo := repository.NewProductionRepository(db)
	if err := seedMasterData(repo); err != nil {
		log.Fatalf("播种主数据失败: %v", err)
	}
	logger.Info("主数据已播种")

	// 2. 三个示例工作簿
	plans := buildPlans(start, *days)
	if err := writePlanningWorkbook(cfg.Excel.PlanningFile, plans); err != nil {
		log.Fatalf("生成计划工作簿失败: %v", err)
	}
	if err := writeLabWorkbook(cfg.Excel.LabDataFile, plans); err != nil {
		log.Fatalf("生成化验工作簿失败: %v", err)
	}
	if err := writeUtilitiesWorkbook(cfg.Excel.UtilitiesFile, plans); err != nil {
		log.Fatalf("生成能耗工作簿失败: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"planning":  cfg.Excel.PlanningFile,
		"lab_data":  cfg.Excel.LabDataFile,
		"utilities": cfg.Excel.UtilitiesFile,
	}).Info("示例工作簿已生成")

	// 3. MES 库：模拟 30 天事件日志
	mesDB, err := gorm.Open(postgres.Open(cfg.MES.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("连接MES库失败: %v", err)
	}
	if err := mesDB.AutoMigrate(&sourceEvent{}); err != nil {
		log.Fatalf("MES库迁移失败: %v", err)
	}
	if err := simulateEvents(mesDB, plans, start, *days); err != nil {
		log.Fatalf("事件模拟失败: %v", err)
	}
	logger.WithField("days", *days).Info("MES事件日志已生成")
}

func seedMasterData(repo repository.ProductionRepository) error {
	machines := []*model.Machine{
		{ID: "PM1", Name: "Paper Machine 1", Location: "Plant A"},
		{ID: "PM2", Name: "Paper Machine 2", Location: "Plant B"},
	}
	articles := []*model.Article{
		{ID: "KL_150", Name: "Kraftliner 150", ProductGroup: "Liner", NominalGSM: 150},
		{ID: "KL_175", Name: "Kraftliner 175", ProductGroup: "Liner", NominalGSM: 175},
		{ID: "TL_100", Name: "Testliner 100", ProductGroup: "Liner", NominalGSM: 100},
		{ID: "TL_140", Name: "Testliner 140", ProductGroup: "Liner", NominalGSM: 140},
		{ID: "WTL_120", Name: "White-Top Testliner 120", ProductGroup: "Liner", NominalGSM: 120},
		{ID: "FL_90", Name: "Fluting 90", ProductGroup: "Medium", NominalGSM: 90},
	}
	return repo.SeedMasterData(context.Background(), machines, articles)
}

// planEntry 展开后的单日单机计划，供三个工作簿与事件模拟共用
type planEntry struct {
	date        time.Time
	machineID   string
	articleID   string
	targetSpeed float64
	targetTons  float64
}

func buildPlans(start time.Time, days int) []planEntry {
	var plans []planEntry
	machines := []string{"PM1", "PM2"}
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		for mi, machineID := range machines {
			// 两台机错开轮换六个纸种
			spec := articleSpecs[(day+mi*3)%len(articleSpecs)]
			capacity := machineCapacity[machineID]
			plans = append(plans, planEntry{
				date:        date,
				machineID:   machineID,
				articleID:   spec.id,
				targetSpeed: float64(int(spec.speed * capacity)),
				targetTons:  float64(int(spec.tons * capacity)),
			})
		}
	}
	return plans
}

func writeWorkbook(path, sheet string, header []string, rows [][]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建数据目录失败: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存工作簿失败: %s: %w", path, err)
	}
	return nil
}

func writePlanningWorkbook(path string, plans []planEntry) error {
	rows := make([][]interface{}, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []interface{}{
			p.date.Format("2006-01-02"), p.machineID, p.articleID, p.targetSpeed, p.targetTons,
		})
	}
	return writeWorkbook(path, "Planning",
		[]string{"Date", "Machine", "Article", "Target_Speed", "Target_Tons"}, rows)
}

func writeLabWorkbook(path string, plans []planEntry) error {
	var rows [][]interface{}
	for _, p := range plans {
		// 每机每天三次抽检
		for _, hour := range []int{6, 14, 22} {
			ts := p.date.Add(time.Duration(hour) * time.Hour)
			rows = append(rows, []interface{}{
				ts.Format("2006-01-02 15:04:05"), p.machineID, p.articleID,
				round1(6.5 + rand.Float64()*2.0),   // 水分 6.5-8.5%
				round1(randomGSM(p.articleID)),     // 实测克重在标称附近
				round1(4.0 + rand.Float64()*2.5),   // 抗张强度
			})
		}
	}
	return writeWorkbook(path, "LabData",
		[]string{"Timestamp", "Machine", "Article", "Moisture_%", "GSM", "Strength_kNm"}, rows)
}

func writeUtilitiesWorkbook(path string, plans []planEntry) error {
	var rows [][]interface{}
	for _, p := range plans {
		tons := p.targetTons * (0.85 + rand.Float64()*0.2)
		rows = append(rows, []interface{}{
			p.date.Format("2006-01-02"), p.machineID,
			round1(tons * (9 + rand.Float64()*3)),    // 水 ~10 m3/t
			round1(tons * (480 + rand.Float64()*80)), // 电 ~520 kWh/t
			round1(tons * (1.6 + rand.Float64()*0.5)),
			round1(tons * (1.02 + rand.Float64()*0.08)),
			round1(tons * (10 + rand.Float64()*6)),
		})
	}
	return writeWorkbook(path, "Utilities",
		[]string{"Date", "Machine", "Water_m3", "Electricity_kWh", "Steam_tons", "Fiber_tons", "Additives_kg"}, rows)
}

func randomGSM(articleID string) float64 {
	base := map[string]float64{
		"KL_150": 150, "KL_175": 175, "TL_100": 100,
		"TL_140": 140, "WTL_120": 120, "FL_90": 90,
	}[articleID]
	return base * (0.98 + rand.Float64()*0.04)
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }

// simulateEvents 逐天逐机生成铺满 24 小时的事件序列并写入 MES 库（先清空旧数据）
func simulateEvents(db *gorm.DB, plans []planEntry, start time.Time, days int) error {
	if err := db.Where("1 = 1").Delete(&sourceEvent{}).Error; err != nil {
		return fmt.Errorf("清空MES事件失败: %w", err)
	}

	planByKey := make(map[string]planEntry)
	for _, p := range plans {
		planByKey[p.machineID+"|"+p.date.Format("2006-01-02")] = p
	}

	var batch []*sourceEvent
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		for machineID := range machineCapacity {
			p, ok := planByKey[machineID+"|"+date.Format("2006-01-02")]
			if !ok {
				continue
			}
			batch = append(batch, generateDayEvents(date, machineID, p)...)
		}
	}

	if err := db.CreateInBatches(batch, 500).Error; err != nil {
		return fmt.Errorf("写入MES事件失败: %w", err)
	}
	return nil
}

func generateDayEvents(date time.Time, machineID string, plan planEntry) []*sourceEvent {
	var events []*sourceEvent
	current := date
	end := date.Add(24 * time.Hour)

	// 按 88% 开动率把日计划量摊到各 RUN 区间
	estimatedRunIntervals := (24 * 60 / float64(eventIntervalMinutes)) * 0.88
	baseWeight := plan.targetTons * 1000 / estimatedRunIntervals

	for current.Before(end) {
		r := rand.Float64()
		switch {
		case r < 0.88: // 正常生产
			duration := eventIntervalMinutes * 60
			status := model.StatusGood
			if rand.Float64() >= 0.95 {
				status = model.StatusScrap
			}
			events = append(events, &sourceEvent{
				Timestamp: current, DurationSeconds: duration,
				EventType: model.EventRun, Status: status,
				WeightKg:     round1(baseWeight * (0.9 + rand.Float64()*0.2)),
				AverageSpeed: round1(plan.targetSpeed * (0.9 + rand.Float64()*0.15)),
				MachineID:    machineID, ArticleID: plan.articleID,
			})
			current = current.Add(time.Duration(duration) * time.Second)

		case r < 0.92: // 计划/技术停机
			duration := (10 + rand.Intn(36)) * 60
			events = append(events, &sourceEvent{
				Timestamp: current, DurationSeconds: duration,
				EventType: model.EventStop, MachineID: machineID,
				Description: stopReasons[rand.Intn(len(stopReasons))],
			})
			current = current.Add(time.Duration(duration) * time.Second)

		default: // 断纸
			duration := (5 + rand.Intn(16)) * 60
			events = append(events, &sourceEvent{
				Timestamp: current, DurationSeconds: duration,
				EventType: model.EventBreak, MachineID: machineID,
				Description: "断纸",
			})
			current = current.Add(time.Duration(duration) * time.Second)

			// 断纸后的重新引纸总会产生少量废品
			if current.Before(end) {
				duration = eventIntervalMinutes * 60
				events = append(events, &sourceEvent{
					Timestamp: current, DurationSeconds: duration,
					EventType: model.EventRun, Status: model.StatusScrap,
					WeightKg:     round1(200 + rand.Float64()*300),
					AverageSpeed: round1(400 + rand.Float64()*200),
					MachineID:    machineID, ArticleID: plan.articleID,
					Description: "断纸后重新引纸",
				})
				current = current.Add(time.Duration(duration) * time.Second)
			}
		}
	}
	return events
}
