package interfaces

import (
	"context"
	"time"

	"MillSync/internal/model"
)

// EventSource MES 事件源适配器接口。两种实现：直连库（adapter/mes）与 REST（adapter/mesapi）。
// 当天无数据时必须返回空切片而不是错误；错误只保留给适配器级故障（I/O 失败等）
type EventSource interface {
	// FetchEvents 拉取某台纸机某天的全部事件，按时间戳升序
	FetchEvents(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error)
	// AvailableDates 该纸机在事件源中有数据的日期列表，升序
	AvailableDates(ctx context.Context, machineID string) ([]time.Time, error)
}

// TabularSource 表格类数据源适配器接口（计划/化验/能耗）。
// 返回当前快照的全部合法行；格式错误的行在适配层丢弃并告警，不向上传播
type TabularSource interface {
	ReadPlan(ctx context.Context) ([]model.PlanRow, error)
	ReadQuality(ctx context.Context) ([]model.QualityRow, error)
	ReadUtility(ctx context.Context) ([]model.UtilityRow, error)
}
