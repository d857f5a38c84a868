package mesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"MillSync/internal/config"
	"MillSync/internal/model"
	"MillSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// Adapter 经由 MES 网关 REST 接口的事件源适配器。
// 行级校验失败只丢弃该行并告警；HTTP/解码失败作为适配器级错误上抛
type Adapter struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewAdapter 按 mes.base_url 创建 REST 适配器
func NewAdapter(cfg *config.MESConfig, logger *logrus.Logger) *Adapter {
	return &Adapter{
		baseURL: cfg.BaseURL,
		client:  httpclient.NewHTTPClient(cfg, logger),
		logger:  logger,
	}
}

func (a *Adapter) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求MES接口失败: %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("MES接口返回异常状态: %s: %d %s", url, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析MES响应失败: %s: %w", url, err)
	}
	return nil
}

// FetchEvents GET {base}/events/{machine}/{date}，返回按时间升序的事件；无数据返回空切片
func (a *Adapter) FetchEvents(ctx context.Context, machineID string, day time.Time) ([]*model.ProductionEvent, error) {
	dateStr := day.Format("2006-01-02")
	url := fmt.Sprintf("%s/events/%s/%s", a.baseURL, machineID, dateStr)

	var raw []model.MESRawEvent
	if err := a.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	events := make([]*model.ProductionEvent, 0, len(raw))
	for i := range raw {
		if err := raw[i].Validate(); err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"machine_id": machineID,
				"date":       dateStr,
			}).Warn("丢弃非法事件行")
			continue
		}
		events = append(events, raw[i].ToEntity())
	}

	// 接口不保证排序，入库前统一按时间升序
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })

	a.logger.WithFields(logrus.Fields{
		"machine_id": machineID,
		"date":       dateStr,
		"count":      len(events),
	}).Debug("MES事件拉取完成")
	return events, nil
}

// AvailableDates GET {base}/machines/{machine}/dates，返回升序日期列表
func (a *Adapter) AvailableDates(ctx context.Context, machineID string) ([]time.Time, error) {
	url := fmt.Sprintf("%s/machines/%s/dates", a.baseURL, machineID)

	var raw []string
	if err := a.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			a.logger.WithField("value", s).Warn("丢弃无法解析的日期")
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
