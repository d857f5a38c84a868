package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"MillSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- 协作方 Mock ---

type MockProductionRepo struct {
	mock.Mock
}

func (m *MockProductionRepo) ListMachineIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProductionRepo) SeedMasterData(ctx context.Context, machines []*model.Machine, articles []*model.Article) error {
	return m.Called(ctx, machines, articles).Error(0)
}

func (m *MockProductionRepo) ReplaceDayEvents(ctx context.Context, machineID string, day time.Time, events []*model.ProductionEvent) error {
	return m.Called(ctx, machineID, day, events).Error(0)
}

func (m *MockProductionRepo) ReplacePlans(ctx context.Context, rows []model.PlanRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockProductionRepo) ReplaceQuality(ctx context.Context, rows []model.QualityRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockProductionRepo) ReplaceUtilities(ctx context.Context, rows []model.UtilityRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockProductionRepo) EventsForDay(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error) {
	args := m.Called(ctx, machineID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ProductionEvent), args.Error(1)
}

func (m *MockProductionRepo) PlansForDay(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionPlan, error) {
	args := m.Called(ctx, machineID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ProductionPlan), args.Error(1)
}

func (m *MockProductionRepo) UtilityForDay(ctx context.Context, machineID string, day time.Time) (*model.UtilityConsumption, error) {
	args := m.Called(ctx, machineID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UtilityConsumption), args.Error(1)
}

func (m *MockProductionRepo) QualityForDay(ctx context.Context, machineID string, day time.Time) ([]*model.QualityMeasurement, error) {
	args := m.Called(ctx, machineID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.QualityMeasurement), args.Error(1)
}

type MockSummaryRepo struct {
	mock.Mock
}

func (m *MockSummaryRepo) Save(ctx context.Context, summary *model.DailySummary) error {
	return m.Called(ctx, summary).Error(0)
}

func (m *MockSummaryRepo) ForDay(ctx context.Context, machineID string, day time.Time) (*model.DailySummary, error) {
	args := m.Called(ctx, machineID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DailySummary), args.Error(1)
}

func (m *MockSummaryRepo) ForRange(ctx context.Context, machineID string, from, to time.Time) ([]*model.DailySummary, error) {
	args := m.Called(ctx, machineID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DailySummary), args.Error(1)
}

type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) FetchEvents(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error) {
	args := m.Called(ctx, machineID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ProductionEvent), args.Error(1)
}

func (m *MockEventSource) AvailableDates(ctx context.Context, machineID string) ([]time.Time, error) {
	args := m.Called(ctx, machineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

type MockTabularSource struct {
	mock.Mock
}

func (m *MockTabularSource) ReadPlan(ctx context.Context) ([]model.PlanRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PlanRow), args.Error(1)
}

func (m *MockTabularSource) ReadQuality(ctx context.Context) ([]model.QualityRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QualityRow), args.Error(1)
}

func (m *MockTabularSource) ReadUtility(ctx context.Context) ([]model.UtilityRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UtilityRow), args.Error(1)
}

func newTestPipeline(repo *MockProductionRepo, summaryRepo *MockSummaryRepo, events *MockEventSource, tabular *MockTabularSource) *PipelineService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	metrics := NewMetricsService(repo, summaryRepo, logger)
	return NewPipelineService(repo, metrics, events, tabular, logger)
}

// 主流程：计划装载、事件替换、KPI 落库依次发生；
// 读失败的能耗表只跳过，不触发删除也不中止运行
func TestRunFullLoad_HappyPath(t *testing.T) {
	repo := new(MockProductionRepo)
	summaryRepo := new(MockSummaryRepo)
	eventSource := new(MockEventSource)
	tabular := new(MockTabularSource)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	events := []*model.ProductionEvent{
		runEvent(day, 36000, 10000, 100, model.StatusGood),
		downEvent(day.Add(10*time.Hour), 14400, model.EventStop),
	}
	planRows := []model.PlanRow{{Date: day, MachineID: "PM1", ArticleID: "KL_150", TargetSpeed: 800, TargetQuantityTons: 25}}

	repo.On("ListMachineIDs", mock.Anything).Return([]string{"PM1"}, nil)
	tabular.On("ReadPlan", mock.Anything).Return(planRows, nil)
	tabular.On("ReadQuality", mock.Anything).Return([]model.QualityRow{}, nil)
	tabular.On("ReadUtility", mock.Anything).Return(nil, errors.New("file locked"))
	repo.On("ReplacePlans", mock.Anything, planRows).Return(nil)
	eventSource.On("FetchEvents", mock.Anything, "PM1", day).Return(events, nil)
	repo.On("ReplaceDayEvents", mock.Anything, "PM1", day, events).Return(nil)
	repo.On("EventsForDay", mock.Anything, "PM1", day).Return(events, nil)
	repo.On("PlansForDay", mock.Anything, "PM1", day).Return([]*model.ProductionPlan{plan(25, 800)}, nil)
	repo.On("UtilityForDay", mock.Anything, "PM1", day).Return(nil, nil)
	repo.On("QualityForDay", mock.Anything, "PM1", day).Return([]*model.QualityMeasurement{}, nil)
	summaryRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	p := newTestPipeline(repo, summaryRepo, eventSource, tabular)
	err := p.RunFullLoad(context.Background(), day)

	require.NoError(t, err)
	repo.AssertCalled(t, "ReplacePlans", mock.Anything, planRows)
	repo.AssertNotCalled(t, "ReplaceQuality", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ReplaceUtilities", mock.Anything, mock.Anything)
	summaryRepo.AssertNumberOfCalls(t, "Save", 1)
}

// 主数据未播种是硬错误
func TestRunFullLoad_NoMachines(t *testing.T) {
	repo := new(MockProductionRepo)
	repo.On("ListMachineIDs", mock.Anything).Return([]string{}, nil)

	p := newTestPipeline(repo, new(MockSummaryRepo), new(MockEventSource), new(MockTabularSource))
	err := p.RunFullLoad(context.Background(), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "纸机")
}

// 事件源故障让整次运行失败，不得落一个零值汇总
func TestRunFullLoad_EventFetchFailureAborts(t *testing.T) {
	repo := new(MockProductionRepo)
	summaryRepo := new(MockSummaryRepo)
	eventSource := new(MockEventSource)
	tabular := new(MockTabularSource)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	repo.On("ListMachineIDs", mock.Anything).Return([]string{"PM1"}, nil)
	tabular.On("ReadPlan", mock.Anything).Return([]model.PlanRow{}, nil)
	tabular.On("ReadQuality", mock.Anything).Return([]model.QualityRow{}, nil)
	tabular.On("ReadUtility", mock.Anything).Return([]model.UtilityRow{}, nil)
	eventSource.On("FetchEvents", mock.Anything, "PM1", day).Return(nil, errors.New("mes unreachable"))

	p := newTestPipeline(repo, summaryRepo, eventSource, tabular)
	err := p.RunFullLoad(context.Background(), day)

	require.Error(t, err)
	repo.AssertNotCalled(t, "ReplaceDayEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	summaryRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// 某机当天无事件：告警后跳过该机，既不替换事件也不写汇总，运行本身成功
func TestRunFullLoad_EmptyEventsSkipsMachine(t *testing.T) {
	repo := new(MockProductionRepo)
	summaryRepo := new(MockSummaryRepo)
	eventSource := new(MockEventSource)
	tabular := new(MockTabularSource)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	repo.On("ListMachineIDs", mock.Anything).Return([]string{"PM1"}, nil)
	tabular.On("ReadPlan", mock.Anything).Return([]model.PlanRow{}, nil)
	tabular.On("ReadQuality", mock.Anything).Return([]model.QualityRow{}, nil)
	tabular.On("ReadUtility", mock.Anything).Return([]model.UtilityRow{}, nil)
	eventSource.On("FetchEvents", mock.Anything, "PM1", day).Return([]*model.ProductionEvent{}, nil)
	repo.On("EventsForDay", mock.Anything, "PM1", day).Return([]*model.ProductionEvent{}, nil)

	p := newTestPipeline(repo, summaryRepo, eventSource, tabular)
	err := p.RunFullLoad(context.Background(), day)

	require.NoError(t, err)
	repo.AssertNotCalled(t, "ReplaceDayEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	summaryRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// 表格装载的持久化失败中止整次运行，事件阶段不再开始
func TestRunFullLoad_TabularPersistFailureAborts(t *testing.T) {
	repo := new(MockProductionRepo)
	eventSource := new(MockEventSource)
	tabular := new(MockTabularSource)

	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	planRows := []model.PlanRow{{Date: day, MachineID: "PM1", TargetSpeed: 800, TargetQuantityTons: 25}}
	repo.On("ListMachineIDs", mock.Anything).Return([]string{"PM1"}, nil)
	tabular.On("ReadPlan", mock.Anything).Return(planRows, nil)
	repo.On("ReplacePlans", mock.Anything, planRows).Return(errors.New("deadlock detected"))

	p := newTestPipeline(repo, new(MockSummaryRepo), eventSource, tabular)
	err := p.RunFullLoad(context.Background(), day)

	require.Error(t, err)
	eventSource.AssertNotCalled(t, "FetchEvents", mock.Anything, mock.Anything, mock.Anything)
}

// 区间驱动：单日失败不影响后续日期，结束时统一报告失败日期
func TestRunRange_ContinuesAfterFailure(t *testing.T) {
	repo := new(MockProductionRepo)
	repo.On("ListMachineIDs", mock.Anything).Return([]string{}, nil)

	p := newTestPipeline(repo, new(MockSummaryRepo), new(MockEventSource), new(MockTabularSource))
	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	err := p.RunRange(context.Background(), from, to)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2026-01-15")
	assert.Contains(t, err.Error(), "2026-01-16")
	repo.AssertNumberOfCalls(t, "ListMachineIDs", 2)
}
