package excel

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"MillSync/internal/config"
	"MillSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Reader 表格类数据源适配器：读取计划 / 化验 / 能耗三个工作簿。
// 内置显式缓存（路径 -> 解析结果 + mtime），文件未变化时不重读；
// 文件缺失按"无数据"处理（空切片 + 告警），不作为硬错误
type Reader struct {
	cfg    *config.ExcelConfig
	logger *logrus.Logger

	mu    sync.Mutex
	cache map[string]*cachedSheet
}

type cachedSheet struct {
	modTime time.Time
	rows    [][]string
}

// NewReader 创建 Excel 表格源适配器
func NewReader(cfg *config.ExcelConfig, logger *logrus.Logger) *Reader {
	return &Reader{
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]*cachedSheet),
	}
}

// readRows 读取工作簿首个工作表的全部单元格，带 mtime 缓存
func (r *Reader) readRows(path string) ([][]string, error) {
	if path == "" {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.WithField("file", path).Warn("数据源文件不存在，按无数据处理")
			return nil, nil
		}
		return nil, fmt.Errorf("读取文件信息失败: %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[path]; ok && cached.modTime.Equal(info.ModTime()) {
		return cached.rows, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开工作簿失败: %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %s: %w", path, err)
	}

	r.cache[path] = &cachedSheet{modTime: info.ModTime(), rows: rows}
	r.logger.WithFields(logrus.Fields{"file": path, "rows": len(rows)}).Info("工作簿已重新读取")
	return rows, nil
}

// dateLayouts Excel 单元格里可能出现的日期/时间格式
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01-02-06",
	"1/2/06 15:04",
	"1/2/2006 15:04",
	"1/2/2006",
}

func parseTime(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %q", cell)
}

func parseFloat(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ReadPlan 读取日生产计划。列序固定：Date, Machine, Article, Target_Speed, Target_Tons
func (r *Reader) ReadPlan(_ context.Context) ([]model.PlanRow, error) {
	rows, err := r.readRows(r.cfg.PlanningFile)
	if err != nil {
		return nil, err
	}

	var out []model.PlanRow
	for i, row := range rows {
		if i == 0 { // 表头
			continue
		}
		date, err := parseTime(cellAt(row, 0))
		if err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("丢弃非法计划行")
			continue
		}
		speed, err1 := parseFloat(cellAt(row, 3))
		tons, err2 := parseFloat(cellAt(row, 4))
		if err1 != nil || err2 != nil {
			r.logger.WithFields(logrus.Fields{"row": i + 1}).Warn("丢弃非法计划行：数值无法解析")
			continue
		}
		pr := model.PlanRow{
			Date:               date,
			MachineID:          strings.TrimSpace(cellAt(row, 1)),
			ArticleID:          strings.TrimSpace(cellAt(row, 2)),
			TargetSpeed:        speed,
			TargetQuantityTons: tons,
		}
		if err := pr.Validate(); err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("丢弃非法计划行")
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

// ReadQuality 读取化验室抽检。列序固定：Timestamp, Machine, Article, Moisture_%, GSM, Strength_kNm
func (r *Reader) ReadQuality(_ context.Context) ([]model.QualityRow, error) {
	rows, err := r.readRows(r.cfg.LabDataFile)
	if err != nil {
		return nil, err
	}

	var out []model.QualityRow
	for i, row := range rows {
		if i == 0 {
			continue
		}
		ts, err := parseTime(cellAt(row, 0))
		if err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("丢弃非法化验行")
			continue
		}
		moisture, err1 := parseFloat(cellAt(row, 3))
		gsm, err2 := parseFloat(cellAt(row, 4))
		strength, err3 := parseFloat(cellAt(row, 5))
		if err1 != nil || err2 != nil || err3 != nil {
			r.logger.WithFields(logrus.Fields{"row": i + 1}).Warn("丢弃非法化验行：数值无法解析")
			continue
		}
		qr := model.QualityRow{
			Timestamp:   ts,
			MachineID:   strings.TrimSpace(cellAt(row, 1)),
			ArticleID:   strings.TrimSpace(cellAt(row, 2)),
			MoisturePct: moisture,
			GSMMeasured: gsm,
			StrengthKNm: strength,
		}
		if err := qr.Validate(); err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("丢弃非法化验行")
			continue
		}
		out = append(out, qr)
	}
	return out, nil
}

// ReadUtility 读取能源与原料日消耗。列序固定：Date, Machine, Water_m3, Electricity_kWh, Steam_tons, Fiber_tons, Additives_kg
func (r *Reader) ReadUtility(_ context.Context) ([]model.UtilityRow, error) {
	rows, err := r.readRows(r.cfg.UtilitiesFile)
	if err != nil {
		return nil, err
	}

	var out []model.UtilityRow
	for i, row := range rows {
		if i == 0 {
			continue
		}
		date, err := parseTime(cellAt(row, 0))
		if err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("丢弃非法能耗行")
			continue
		}
		var vals [5]float64
		bad := false
		for j := 0; j < 5; j++ {
			v, err := parseFloat(cellAt(row, j+2))
			if err != nil {
				bad = true
				break
			}
			vals[j] = v
		}
		if bad {
			r.logger.WithFields(logrus.Fields{"row": i + 1}).Warn("丢弃非法能耗行：数值无法解析")
			continue
		}
		ur := model.UtilityRow{
			Date:           date,
			MachineID:      strings.TrimSpace(cellAt(row, 1)),
			WaterM3:        vals[0],
			ElectricityKwh: vals[1],
			SteamTons:      vals[2],
			FiberTons:      vals[3],
			AdditivesKg:    vals[4],
		}
		if err := ur.Validate(); err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("丢弃非法能耗行")
			continue
		}
		out = append(out, ur)
	}
	return out, nil
}
