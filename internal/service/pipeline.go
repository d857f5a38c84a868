package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"MillSync/internal/interfaces"
	"MillSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PipelineService ETL 流程编排：对一个目标日期完成
// 1) 表格源装载（计划/化验/能耗，replace-range 协议）
// 2) MES 事件装载（逐机整段替换）
// 3) KPI 重算（逐机删旧插新）
// 三个阶段严格按序执行，任一阶段的意外失败中止整次运行；
// 对已装载成功的其他日期没有影响，同一日期重跑是幂等的。
// 同一 (machine, date) 的并发装载由调用方负责串行，核心不加锁
type PipelineService struct {
	repo        repository.ProductionRepository
	metrics     *MetricsService
	eventSource interfaces.EventSource
	tabular     interfaces.TabularSource
	logger      *logrus.Logger
}

// NewPipelineService 创建 PipelineService
func NewPipelineService(
	repo repository.ProductionRepository,
	metrics *MetricsService,
	eventSource interfaces.EventSource,
	tabular interfaces.TabularSource,
	logger *logrus.Logger,
) *PipelineService {
	return &PipelineService{
		repo:        repo,
		metrics:     metrics,
		eventSource: eventSource,
		tabular:     tabular,
		logger:      logger,
	}
}

// RunFullLoad 对目标日期执行一次完整装载。重复调用产生完全相同的结果
func (s *PipelineService) RunFullLoad(ctx context.Context, targetDate time.Time) error {
	log := s.logger.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"date":   targetDate.Format("2006-01-02"),
	})
	log.Info("ETL装载开始")

	machines, err := s.repo.ListMachineIDs(ctx)
	if err != nil {
		return fmt.Errorf("查询纸机列表失败: %w", err)
	}
	if len(machines) == 0 {
		return fmt.Errorf("数据库中没有注册纸机，请先播种主数据（cmd/seed）")
	}

	// 阶段一：表格源。必须先于 KPI 重算完成，metrics 同步读这几张表
	if err := s.loadTabularSources(ctx, log); err != nil {
		return err
	}

	// 阶段二：MES 事件，KPI 的时间轴，读取失败整次运行失败
	if err := s.loadEvents(ctx, log, machines, targetDate); err != nil {
		return err
	}

	// 阶段三：KPI 重算
	if err := s.updateDailySummaries(ctx, log, machines, targetDate); err != nil {
		return err
	}

	log.Info("ETL装载完成")
	return nil
}

// loadTabularSources 装载计划/化验/能耗。单表读取失败退化为"无数据"并告警，
// 不删除任何已有行；持久化失败则中止整次运行
func (s *PipelineService) loadTabularSources(ctx context.Context, log *logrus.Entry) error {
	plans, err := s.tabular.ReadPlan(ctx)
	if err != nil {
		log.WithError(err).Warn("读取计划源失败，跳过计划装载")
	} else if len(plans) > 0 {
		if err := s.repo.ReplacePlans(ctx, plans); err != nil {
			return fmt.Errorf("计划装载失败: %w", err)
		}
		log.WithField("count", len(plans)).Info("计划数据已同步")
	}

	quality, err := s.tabular.ReadQuality(ctx)
	if err != nil {
		log.WithError(err).Warn("读取化验源失败，跳过化验装载")
	} else if len(quality) > 0 {
		if err := s.repo.ReplaceQuality(ctx, quality); err != nil {
			return fmt.Errorf("化验装载失败: %w", err)
		}
		log.WithField("count", len(quality)).Info("化验数据已同步")
	}

	utilities, err := s.tabular.ReadUtility(ctx)
	if err != nil {
		log.WithError(err).Warn("读取能耗源失败，跳过能耗装载")
	} else if len(utilities) > 0 {
		if err := s.repo.ReplaceUtilities(ctx, utilities); err != nil {
			return fmt.Errorf("能耗装载失败: %w", err)
		}
		log.WithField("count", len(utilities)).Info("能耗数据已同步")
	}

	return nil
}

// loadEvents 逐机拉取目标日期的 MES 事件并整段替换。
// 某机当天无事件只告警跳过；拉取出错说明事件源本身故障，整次运行失败
func (s *PipelineService) loadEvents(ctx context.Context, log *logrus.Entry, machines []string, targetDate time.Time) error {
	for _, machineID := range machines {
		events, err := s.eventSource.FetchEvents(ctx, machineID, targetDate)
		if err != nil {
			return fmt.Errorf("拉取MES事件失败: machine=%s: %w", machineID, err)
		}
		if len(events) == 0 {
			log.WithField("machine_id", machineID).Warn("当天无MES事件，跳过该纸机")
			continue
		}
		if err := s.repo.ReplaceDayEvents(ctx, machineID, targetDate, events); err != nil {
			return fmt.Errorf("事件装载失败: machine=%s: %w", machineID, err)
		}
		log.WithFields(logrus.Fields{"machine_id": machineID, "count": len(events)}).Info("事件日志已同步")
	}
	return nil
}

// updateDailySummaries 逐机重算并落库日度 KPI；没有事件的纸机跳过
func (s *PipelineService) updateDailySummaries(ctx context.Context, log *logrus.Entry, machines []string, targetDate time.Time) error {
	for _, machineID := range machines {
		summary, err := s.metrics.CalculateDailyMetrics(ctx, machineID, targetDate)
		if err != nil {
			return fmt.Errorf("KPI计算失败: machine=%s: %w", machineID, err)
		}
		if summary == nil {
			continue
		}
		if err := s.metrics.SaveSummary(ctx, summary); err != nil {
			return fmt.Errorf("KPI汇总写入失败: machine=%s: %w", machineID, err)
		}
	}
	log.Info("日度KPI汇总已更新")
	return nil
}

// RunRange 按天驱动 [from, to] 闭区间内的完整装载。
// 单日失败记录后继续装载后续日期，结束时汇总返回失败的日期
func (s *PipelineService) RunRange(ctx context.Context, from, to time.Time) error {
	var failed []string
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := s.RunFullLoad(ctx, day); err != nil {
			s.logger.WithError(err).WithField("date", day.Format("2006-01-02")).Error("单日装载失败，继续后续日期")
			failed = append(failed, day.Format("2006-01-02"))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("以下日期装载失败: %s", strings.Join(failed, ", "))
	}
	return nil
}
