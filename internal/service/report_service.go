package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/internal/lunch"
	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
	"github.com/TonyV66/LunchSystem-sub000/pkg/redis"
	"github.com/TonyV66/LunchSystem-sub000/pkg/storage"
)

// ── 报表模块业务错误 ──

var (
	ErrReportGenerateFail = errors.New("生成报表文件失败")
	ErrArchiveDisabled    = storage.ErrDisabled
)

// XLSXContentType Excel 文件 MIME 类型
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportService 报表业务接口
//
//   - yearID 为空时使用日期所在学年
//   - 日报 JSON 缓存在 Redis，下单、取消与排班变更时失效
//   - 导出为 .xlsx，就餐者姓名单元格纵向合并覆盖其全部餐点
type ReportService interface {
	DailyReport(ctx context.Context, yearID string, date time.Time) (*lunch.Report, error)
	ExportDailyReport(ctx context.Context, yearID string, date time.Time) (*bytes.Buffer, string, error)
	// ArchiveDailyReport 导出并上传到对象存储，返回对象键
	ArchiveDailyReport(ctx context.Context, yearID string, date time.Time) (string, error)
}

type reportService struct {
	cfg     *config.Config
	repo    *repository.Repository
	cache   Cache
	archive storage.Store
	logger  *zap.Logger
}

// NewReportService 创建 ReportService 实例；cache、archive 可为 nil
func NewReportService(
	cfg *config.Config,
	repo *repository.Repository,
	cache Cache,
	archive storage.Store,
	logger *zap.Logger,
) ReportService {
	return &reportService{cfg: cfg, repo: repo, cache: cache, archive: archive, logger: logger}
}

func (s *reportService) DailyReport(ctx context.Context, yearID string, date time.Time) (*lunch.Report, error) {
	date = calendar.CivilDate(date)
	day := calendar.ToCanonicalDateString(date)
	key := reportCacheKey(yearID, day)

	if s.cache != nil {
		var cached lunch.Report
		err := s.cache.GetJSON(ctx, key, &cached)
		switch {
		case err == nil:
			return &cached, nil
		case !errors.Is(err, redis.ErrCacheMiss):
			s.logger.Warn("读取报表缓存失败", zap.String("key", key), zap.Error(err))
		}
	}

	year, err := s.loadYearForDate(ctx, yearID, date)
	if err != nil {
		return nil, err
	}
	meals, err := s.repo.Meal.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询餐点失败", zap.String("date", day), zap.Error(err))
		return nil, err
	}

	var opts []lunch.AggregateOption
	if s.cfg.School.DessertLast {
		opts = append(opts, lunch.WithDessertLast())
	}
	report := lunch.Aggregate(meals, year, date, opts...)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, report, s.cfg.Report.CacheTTL); err != nil {
			s.logger.Warn("写入报表缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}

func (s *reportService) ExportDailyReport(ctx context.Context, yearID string, date time.Time) (*bytes.Buffer, string, error) {
	report, err := s.DailyReport(ctx, yearID, date)
	if err != nil {
		return nil, "", err
	}
	buf, err := renderReport(report)
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("date", report.Date), zap.Error(err))
		return nil, "", ErrReportGenerateFail
	}
	return buf, fmt.Sprintf("lunch-report-%s.xlsx", report.Date), nil
}

func (s *reportService) ArchiveDailyReport(ctx context.Context, yearID string, date time.Time) (string, error) {
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	buf, filename, err := s.ExportDailyReport(ctx, yearID, date)
	if err != nil {
		return "", err
	}
	key := calendar.CivilDate(date).Format("2006/01/") + filename
	return s.archive.Put(ctx, key, XLSXContentType, buf.Bytes())
}

func (s *reportService) loadYearForDate(ctx context.Context, yearID string, date time.Time) (*model.SchoolYear, error) {
	var (
		year *model.SchoolYear
		err  error
	)
	if yearID == "" {
		year, err = s.repo.SchoolYear.GetForDate(ctx, date)
	} else {
		year, err = s.repo.SchoolYear.GetByID(ctx, yearID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSchoolYearNotFound
		}
		s.logger.Error("查询学年失败", zap.String("school_year_id", yearID), zap.Error(err))
		return nil, err
	}
	if !year.Contains(date) {
		return nil, ErrDateOutOfYear
	}
	return year, nil
}

// ═══════════════════════════════════════════════════════════
// renderReport 渲染日报 Excel
// ═══════════════════════════════════════════════════════════
//
// Sheet "Report"：
//   - 每个时间段桶：标题行（合并 A:C）
//   - 每个分组：分组标题行，随后每位就餐者一行或多行（A 列姓名纵向合并，B 列菜品）
//   - 桶末尾：菜品计数表
// Sheet "Totals"：全天菜品计数

const (
	reportSheet = "Report"
	totalsSheet = "Totals"
)

func renderReport(report *lunch.Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	bucketStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	cohortStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	nameStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top"},
	})

	_ = f.SetColWidth(reportSheet, "A", "A", 28)
	_ = f.SetColWidth(reportSheet, "B", "B", 60)
	_ = f.SetColWidth(reportSheet, "C", "C", 10)

	row := 1
	_ = f.SetCellValue(reportSheet, cell("A", row), fmt.Sprintf("Lunch Report - %s %s", report.Weekday, report.Date))
	_ = f.MergeCell(reportSheet, cell("A", row), cell("C", row))
	_ = f.SetCellStyle(reportSheet, cell("A", row), cell("C", row), titleStyle)
	row += 2

	for _, b := range report.Buckets {
		_ = f.SetCellValue(reportSheet, cell("A", row), b.Label)
		_ = f.MergeCell(reportSheet, cell("A", row), cell("C", row))
		_ = f.SetCellStyle(reportSheet, cell("A", row), cell("C", row), bucketStyle)
		row++

		for _, c := range b.Cohorts {
			_ = f.SetCellValue(reportSheet, cell("A", row), c.Title)
			_ = f.SetCellStyle(reportSheet, cell("A", row), cell("C", row), cohortStyle)
			row++

			for _, r := range c.Rows {
				first := row
				for _, m := range r.Meals {
					_ = f.SetCellValue(reportSheet, cell("B", row), strings.Join(m.Items, ", "))
					row++
				}
				_ = f.SetCellValue(reportSheet, cell("A", first), r.DinerName)
				if row-1 > first {
					_ = f.MergeCell(reportSheet, cell("A", first), cell("A", row-1))
				}
				_ = f.SetCellStyle(reportSheet, cell("A", first), cell("A", row-1), nameStyle)
			}
		}

		row++
		row = writeTallies(f, reportSheet, row, b.Tallies)
		row++
	}

	_ = f.SetColWidth(totalsSheet, "A", "A", 30)
	_ = f.SetColWidth(totalsSheet, "B", "B", 12)
	writeTallies(f, totalsSheet, 1, report.Totals)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeTallies 写入计数表，返回下一可用行
func writeTallies(f *excelize.File, sheet string, row int, tallies []lunch.Tally) int {
	_ = f.SetCellValue(sheet, cell("A", row), "Item")
	_ = f.SetCellValue(sheet, cell("B", row), "Category")
	_ = f.SetCellValue(sheet, cell("C", row), "Qty")
	row++
	for _, t := range tallies {
		_ = f.SetCellValue(sheet, cell("A", row), t.Name)
		_ = f.SetCellValue(sheet, cell("B", row), string(t.Category))
		_ = f.SetCellValue(sheet, cell("C", row), t.Quantity)
		row++
	}
	return row
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
