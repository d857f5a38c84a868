package excel

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"MillSync/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// writeSheet 生成测试工作簿，首行为表头
func writeSheet(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}
	require.NoError(t, f.SaveAs(path))
}

func TestReadPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planning.xlsx")
	writeSheet(t, path, "Plan", [][]interface{}{
		{"Date", "Machine", "Article", "Target_Speed", "Target_Tons"},
		{"2026-01-15", "PM1", "KL_150", 800, 25},
		{"2026-01-15", "PM2", "TL_140", 750, 22.5},
		{"nem datum", "PM1", "KL_150", 800, 25}, // 日期非法，应被丢弃
		{"2026-01-16", "", "KL_150", 800, 25},   // 缺纸机ID，应被丢弃
	})

	r := NewReader(&config.ExcelConfig{PlanningFile: path}, quietLogger())
	rows, err := r.ReadPlan(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PM1", rows[0].MachineID)
	assert.Equal(t, "KL_150", rows[0].ArticleID)
	assert.Equal(t, 800.0, rows[0].TargetSpeed)
	assert.Equal(t, 25.0, rows[0].TargetQuantityTons)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 22.5, rows[1].TargetQuantityTons)
}

func TestReadQuality(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lab.xlsx")
	writeSheet(t, path, "Lab", [][]interface{}{
		{"Timestamp", "Machine", "Article", "Moisture_%", "GSM", "Strength_kNm"},
		{"2026-01-15 06:00:00", "PM1", "KL_150", 7.2, 151.3, 4.8},
		{"2026-01-15 14:00:00", "PM1", "KL_150", "rossz", 150.0, 4.7}, // 数值非法，应被丢弃
	})

	r := NewReader(&config.ExcelConfig{LabDataFile: path}, quietLogger())
	rows, err := r.ReadQuality(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 7.2, rows[0].MoisturePct)
	assert.Equal(t, 151.3, rows[0].GSMMeasured)
	assert.Equal(t, 4.8, rows[0].StrengthKNm)
	assert.Equal(t, 6, rows[0].Timestamp.Hour())
}

func TestReadUtility(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "utilities.xlsx")
	writeSheet(t, path, "Utilities", [][]interface{}{
		{"Date", "Machine", "Water_m3", "Electricity_kWh", "Steam_tons", "Fiber_tons", "Additives_kg"},
		{"2026-01-15", "PM1", 210.5, 19800, 52.3, 21.8, 340},
	})

	r := NewReader(&config.ExcelConfig{UtilitiesFile: path}, quietLogger())
	rows, err := r.ReadUtility(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 210.5, rows[0].WaterM3)
	assert.Equal(t, 19800.0, rows[0].ElectricityKwh)
	assert.Equal(t, 52.3, rows[0].SteamTons)
	assert.Equal(t, 21.8, rows[0].FiberTons)
	assert.Equal(t, 340.0, rows[0].AdditivesKg)
}

// 文件不存在按无数据处理，不是硬错误
func TestReadPlan_MissingFile(t *testing.T) {
	r := NewReader(&config.ExcelConfig{PlanningFile: filepath.Join(t.TempDir(), "nincs.xlsx")}, quietLogger())
	rows, err := r.ReadPlan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// mtime 未变化时命中缓存：重写文件后把 mtime 改回去，应读到旧内容；
// mtime 前进后应读到新内容
func TestReadPlan_ModTimeCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planning.xlsx")
	header := []interface{}{"Date", "Machine", "Article", "Target_Speed", "Target_Tons"}
	writeSheet(t, path, "Plan", [][]interface{}{
		header,
		{"2026-01-15", "PM1", "KL_150", 800, 25},
	})
	info, err := os.Stat(path)
	require.NoError(t, err)
	firstMod := info.ModTime()

	r := NewReader(&config.ExcelConfig{PlanningFile: path}, quietLogger())
	rows, err := r.ReadPlan(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	writeSheet(t, path, "Plan", [][]interface{}{
		header,
		{"2026-01-15", "PM1", "KL_150", 800, 25},
		{"2026-01-16", "PM1", "TL_140", 700, 20},
	})
	require.NoError(t, os.Chtimes(path, firstMod, firstMod))

	rows, err = r.ReadPlan(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1, "mtime 未变化应命中缓存")

	later := firstMod.Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	rows, err = r.ReadPlan(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2, "mtime 变化后应重新读取")
}
