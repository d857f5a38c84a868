package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"MillSync/internal/model"
	"MillSync/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// MetricsService KPI 计算服务：从四张原始表取数，算出某机某天的 DailySummary 并落库。
// 计算本身是纯函数（ComputeDailySummary），持久化由调用方显式触发
type MetricsService struct {
	repo        repository.ProductionRepository
	summaryRepo repository.SummaryRepository
	logger      *logrus.Logger
}

// NewMetricsService 创建 MetricsService
func NewMetricsService(repo repository.ProductionRepository, summaryRepo repository.SummaryRepository, logger *logrus.Logger) *MetricsService {
	return &MetricsService{
		repo:        repo,
		summaryRepo: summaryRepo,
		logger:      logger,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// ComputeDailySummary 由四组输入算出日度 KPI，纯函数、无副作用。
// 没有任何事件时返回 nil（无可计算，属正常情况而非错误）。
//
// 算法要点：
//   - 吨位只来自 RUN 事件；scrap 是 RUN 产量的子集，good = total - scrap 恒成立
//   - 平均车速按产量加权（短时高速卷不会压过长时低速卷）
//   - 计划车速按计划量加权；计划总量为 0 时退化为简单平均（保留这个回退顺序）
//   - performance 封顶 100（标准 OEE 定义），OEE 用封顶后的值算
func ComputeDailySummary(machineID string, day time.Time,
	events []*model.ProductionEvent, plans []*model.ProductionPlan,
	utility *model.UtilityConsumption, samples []*model.QualityMeasurement) *model.DailySummary {

	if len(events) == 0 {
		return nil
	}

	// 产量统计（吨）
	var totalKg, scrapKg, weightedSpeedSum float64
	var runTimeSec, totalTimeSec, downtimeSec int
	breakCount := 0
	for _, e := range events {
		totalTimeSec += e.DurationSeconds
		switch e.EventType {
		case model.EventRun:
			runTimeSec += e.DurationSeconds
			totalKg += e.WeightKg
			weightedSpeedSum += e.AverageSpeed * e.WeightKg
			if e.Status == model.StatusScrap {
				scrapKg += e.WeightKg
			}
		case model.EventStop:
			downtimeSec += e.DurationSeconds
		case model.EventBreak:
			downtimeSec += e.DurationSeconds
			breakCount++
		}
	}

	totalTons := totalKg / 1000.0
	scrapTons := scrapKg / 1000.0
	goodTons := totalTons - scrapTons

	avgSpeed := 0.0
	if totalTons > 0 {
		avgSpeed = weightedSpeedSum / totalKg
	}

	// 计划目标
	var targetTons, weightedTargetSpeedSum, targetSpeedSum float64
	for _, p := range plans {
		targetTons += p.TargetQuantityTons
		weightedTargetSpeedSum += p.TargetSpeed * p.TargetQuantityTons
		targetSpeedSum += p.TargetSpeed
	}
	targetSpeed := 0.0
	if targetTons > 0 {
		targetSpeed = weightedTargetSpeedSum / targetTons
	} else if len(plans) > 0 {
		targetSpeed = targetSpeedSum / float64(len(plans))
	}

	// OEE 三分量
	availPct := 0.0
	if totalTimeSec > 0 {
		availPct = float64(runTimeSec) / float64(totalTimeSec) * 100.0
	}
	perfPct := 0.0
	if targetTons > 0 {
		perfPct = totalTons / targetTons * 100.0
		if perfPct > 100.0 {
			perfPct = 100.0
		}
	}
	qualPct := 0.0
	if totalTons > 0 {
		qualPct = goodTons / totalTons * 100.0
	}
	oeePct := availPct / 100.0 * perfPct / 100.0 * qualPct / 100.0 * 100.0

	// 化验均值（仅描述性指标，不参与 OEE）
	var avgMoisture, avgGSM float64
	if len(samples) > 0 {
		var moistureSum, gsmSum float64
		for _, q := range samples {
			moistureSum += q.MoisturePct
			gsmSum += q.GSMMeasured
		}
		avgMoisture = moistureSum / float64(len(samples))
		avgGSM = gsmSum / float64(len(samples))
	}

	// 吨纸单耗：有能耗行且当天有产量才有意义
	var specElec, specWater, specSteam, specFiber float64
	if utility != nil && totalTons > 0 {
		specElec = utility.ElectricityKwh / totalTons
		specWater = utility.WaterM3 / totalTons
		specSteam = utility.SteamTons / totalTons
		specFiber = utility.FiberTons / totalTons
	}

	return &model.DailySummary{
		Date:      datatypes.Date(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())),
		MachineID: machineID,

		OeePct:          round2(oeePct),
		AvailabilityPct: round2(availPct),
		PerformancePct:  round2(perfPct),
		QualityPct:      round2(qualPct),

		TotalTons:  round2(totalTons),
		GoodTons:   round2(goodTons),
		ScrapTons:  round2(scrapTons),
		TargetTons: round2(targetTons),

		TotalDowntimeMin: round1(float64(downtimeSec) / 60.0),
		BreakCount:       breakCount,
		AvgSpeedMMin:     round1(avgSpeed),
		TargetSpeedMMin:  round1(targetSpeed),

		AvgMoisturePct: round2(avgMoisture),
		AvgGSMMeasured: round1(avgGSM),

		SpecElectricityKwhT: round2(specElec),
		SpecWaterM3T:        round2(specWater),
		SpecSteamTT:         round2(specSteam),
		SpecFiberTT:         round2(specFiber),
	}
}

// CalculateDailyMetrics 加载某机某天的四组输入并计算汇总。
// 当天没有事件时返回 (nil, nil)，调用方应跳过持久化
func (s *MetricsService) CalculateDailyMetrics(ctx context.Context, machineID string, day time.Time) (*model.DailySummary, error) {
	events, err := s.repo.EventsForDay(ctx, machineID, day)
	if err != nil {
		return nil, fmt.Errorf("加载事件失败: %w", err)
	}
	if len(events) == 0 {
		s.logger.WithFields(logrus.Fields{
			"machine_id": machineID,
			"date":       day.Format("2006-01-02"),
		}).Warn("当天无生产事件，跳过KPI计算")
		return nil, nil
	}

	plans, err := s.repo.PlansForDay(ctx, machineID, day)
	if err != nil {
		return nil, fmt.Errorf("加载计划失败: %w", err)
	}
	utility, err := s.repo.UtilityForDay(ctx, machineID, day)
	if err != nil {
		return nil, fmt.Errorf("加载能耗失败: %w", err)
	}
	samples, err := s.repo.QualityForDay(ctx, machineID, day)
	if err != nil {
		return nil, fmt.Errorf("加载化验数据失败: %w", err)
	}

	return ComputeDailySummary(machineID, day, events, plans, utility, samples), nil
}

// SaveSummary 持久化汇总（同键先删后插，单事务）
func (s *MetricsService) SaveSummary(ctx context.Context, summary *model.DailySummary) error {
	if err := s.summaryRepo.Save(ctx, summary); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"machine_id": summary.MachineID,
		"date":       time.Time(summary.Date).Format("2006-01-02"),
		"oee_pct":    summary.OeePct,
	}).Info("日度KPI汇总已写入")
	return nil
}
