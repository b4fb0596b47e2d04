package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ── 日期工具 ──────────────────────────────────────────────
//
// 职责：日期 ↔ 星期序号、日期 ↔ 规范字符串、24 小时制 ↔ 12 小时制。
//
// 约定：
//   - 星期序号 0=周日 … 6=周六（与前端、数据库 day_of_week 一致）
//   - 规范日期字符串 YYYY-MM-DD，按民用日期处理，不涉及时区换算
//   - 时刻字符串 HH:MM（24 小时制）
// ─────────────────────────────────────────────────────────────

// DateLayout 规范日期格式
const DateLayout = "2006-01-02"

// Weekday 星期序号（0=周日 … 6=周六）
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// 具名星期集合，使用显式列表而非位标志
var (
	AllDays  = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}
	Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
	Weekend  = []Weekday{Saturday, Sunday}
)

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Valid 是否为合法序号
func (d Weekday) Valid() bool { return d >= Sunday && d <= Saturday }

func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// In 判断是否属于给定集合
func (d Weekday) In(set []Weekday) bool {
	for _, s := range set {
		if s == d {
			return true
		}
	}
	return false
}

// ParseWeekday 解析星期：支持序号 "0".."6" 与英文名（不区分大小写，可缩写为前三个字母）
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		d := Weekday(n)
		if !d.Valid() {
			return 0, fmt.Errorf("无效的星期序号 %d", n)
		}
		return d, nil
	}
	lower := strings.ToLower(s)
	for i, name := range weekdayNames {
		n := strings.ToLower(name)
		if lower == n || (len(lower) == 3 && strings.HasPrefix(n, lower)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("无效的星期 %q", s)
}

// DayOfWeek 返回日期对应的星期序号
func DayOfWeek(date time.Time) Weekday {
	return Weekday(date.Weekday())
}

// ToCanonicalDateString 格式化为 YYYY-MM-DD
func ToCanonicalDateString(date time.Time) string {
	return date.Format(DateLayout)
}

// ParseDate 解析规范日期字符串，返回 UTC 零点的民用日期
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return t, nil
}

// MustParseDate 解析失败直接 panic，仅用于常量日期与测试
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// CivilDate 丢弃时分秒与时区，得到同一民用日期的 UTC 零点
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate 两个时间是否为同一民用日期
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ── 时刻 ──

// ParseClock 解析 HH:MM（允许单数字小时），返回当日分钟数
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(m) != 2 || len(h) == 0 || len(h) > 2 {
		return 0, fmt.Errorf("无效的时刻 %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("无效的时刻 %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("无效的时刻 %q", s)
	}
	return hour*60 + minute, nil
}

// NormalizeClock 规范化为两位小时的 HH:MM
func NormalizeClock(s string) (string, error) {
	minutes, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
}

// ToTwelveHourTime 24 小时制转 12 小时制（仅用于展示）；无法解析时原样返回
func ToTwelveHourTime(hhmm string) string {
	minutes, err := ParseClock(hhmm)
	if err != nil {
		return hhmm
	}
	hour, minute := minutes/60, minutes%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// At 将民用日期与时刻组合为指定时区的时间点
func At(date time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	minutes, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc), nil
}
