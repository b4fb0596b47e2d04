package lunch

import (
	"sort"
	"strings"
	"time"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
)

// ── 报表聚合 ──────────────────────────────────────────────
//
// 输入：某日的餐点 + 学年排班快照
// 输出：时间段桶 → 班级/年级/教职工分组 → 就餐者行（一人多餐为多个子行）
//
// 规则：
//   - 解析出的时间属于当天默认时间列表的，按时刻升序各成一桶；其余（含 Unassigned）进入末尾的 Other 桶
//   - 学生当日年级按班级排定且分配了教师 → 班级分组；其他学生 → 年级分组；教职工 → 末尾 Staff 分组
//   - 组内按姓名不区分大小写排序
//   - 统计按 (名称不区分大小写, 类别) 计数，每桶一份、全天一份
// ─────────────────────────────────────────────────────────────

// OtherBucketLabel 非常规时间桶的标题
const OtherBucketLabel = "Other"

// StaffCohortTitle 教职工分组标题
const StaffCohortTitle = "Staff"

// CohortKind 分组类型
type CohortKind string

const (
	CohortClassroom CohortKind = "classroom"
	CohortGrade     CohortKind = "grade"
	CohortStaff     CohortKind = "staff"
)

// Report 某日报表
type Report struct {
	Date      string         `json:"date"`
	Weekday   string         `json:"weekday"`
	Buckets   []ReportBucket `json:"buckets"`
	Totals    []Tally        `json:"totals"`
	MealCount int            `json:"meal_count"`
	ItemCount int            `json:"item_count"`
}

// ReportBucket 时间段桶；Time 为 nil 表示 Other 桶
type ReportBucket struct {
	Label   string   `json:"label"`
	Time    *string  `json:"time"`
	Cohorts []Cohort `json:"cohorts"`
	Tallies []Tally  `json:"tallies"`
}

// Cohort 班级 / 年级 / 教职工分组
type Cohort struct {
	Title     string      `json:"title"`
	Kind      CohortKind  `json:"kind"`
	Grade     model.Grade `json:"grade,omitempty"`
	TeacherID string      `json:"teacher_id,omitempty"`
	Rows      []Row       `json:"rows"`
}

// Row 就餐者行；多份餐点作为子行
type Row struct {
	DinerID   string    `json:"diner_id"`
	DinerName string    `json:"diner_name"`
	Meals     []RowMeal `json:"meals"`
}

// RowMeal 一份餐点的菜品名称
type RowMeal struct {
	MealID string   `json:"meal_id"`
	Items  []string `json:"items"`
}

// Tally 菜品计数
type Tally struct {
	Name     string         `json:"name"`
	Category model.Category `json:"category"`
	Quantity int            `json:"quantity"`
}

// AggregateOption 聚合选项
type AggregateOption func(*aggregateOptions)

type aggregateOptions struct {
	dessertLast bool
}

// WithDessertLast 行内菜品列表把名称含 dessert 的菜品排在同类别最后
func WithDessertLast() AggregateOption {
	return func(o *aggregateOptions) { o.dessertLast = true }
}

// Aggregate 一次性聚合；批量场景应复用 NewResolver 的结果
func Aggregate(meals []model.Meal, year *model.SchoolYear, date time.Time, opts ...AggregateOption) *Report {
	return NewResolver(year).Aggregate(meals, date, opts...)
}

// Aggregate 聚合 date 当天的餐点，其他日期的餐点被忽略
func (r *Resolver) Aggregate(meals []model.Meal, date time.Time, opts ...AggregateOption) *Report {
	var o aggregateOptions
	for _, opt := range opts {
		opt(&o)
	}

	day := calendar.DayOfWeek(date)
	scheduled := make(map[string]bool)
	for _, t := range r.defaults[day] {
		scheduled[normalizeTime(t)] = true
	}

	buckets := make(map[string]*bucketAcc)
	total := newTallyAcc()
	report := &Report{
		Date:    calendar.ToCanonicalDateString(date),
		Weekday: day.String(),
	}

	for i := range meals {
		m := &meals[i]
		if !calendar.SameDate(m.Date, date) {
			continue
		}
		slot := r.ResolveMeal(m)

		key := ""
		if slot.Assigned() {
			if t := normalizeTime(slot.Time); scheduled[t] {
				key = t
			}
		}
		b, ok := buckets[key]
		if !ok {
			b = newBucketAcc(key)
			buckets[key] = b
		}

		c := b.cohort(r.cohortFor(m, day))
		c.addMeal(m, o.dessertLast)
		b.tally.add(m.Items)
		total.add(m.Items)

		report.MealCount++
		report.ItemCount += len(m.Items)
	}

	report.Buckets = sortedBuckets(buckets)
	report.Totals = total.sorted()
	return report
}

// ── 分组 ──

type cohortKey struct {
	kind CohortKind
	id   string // 班级为教师 ID，年级为年级代码
}

type cohortInfo struct {
	key   cohortKey
	title string
	grade model.Grade
}

func (r *Resolver) cohortFor(m *model.Meal, day calendar.Weekday) cohortInfo {
	if m.DinerKind != model.DinerStudent {
		return cohortInfo{key: cohortKey{kind: CohortStaff}, title: StaffCohortTitle}
	}

	var grade model.Grade
	if m.Student != nil {
		grade = m.Student.Grade
	}
	row, ok := r.StudentDay(m.DinerID, day)
	if ok {
		grade = row.Grade
	}

	if ok && r.byClass[grade] && row.TeacherID != nil && *row.TeacherID != "" {
		teacherID := *row.TeacherID
		return cohortInfo{
			key:   cohortKey{kind: CohortClassroom, id: teacherID},
			title: r.teacherTitle(row, teacherID, day),
			grade: grade,
		}
	}
	return cohortInfo{
		key:   cohortKey{kind: CohortGrade, id: string(grade)},
		title: grade.Label(),
		grade: grade,
	}
}

func (r *Resolver) teacherTitle(row *model.StudentLunchTime, teacherID string, day calendar.Weekday) string {
	if row.Teacher != nil {
		if n := row.Teacher.DisplayName(); n != "" {
			return n
		}
	}
	if tr, ok := r.TeacherDay(teacherID, day); ok && tr.Teacher != nil {
		if n := tr.Teacher.DisplayName(); n != "" {
			return n
		}
	}
	return teacherID
}

// ── 累加器 ──

type bucketAcc struct {
	time    string // 空表示 Other 桶
	cohorts map[cohortKey]*cohortAcc
	tally   *tallyAcc
}

func newBucketAcc(t string) *bucketAcc {
	return &bucketAcc{time: t, cohorts: make(map[cohortKey]*cohortAcc), tally: newTallyAcc()}
}

func (b *bucketAcc) cohort(info cohortInfo) *cohortAcc {
	c, ok := b.cohorts[info.key]
	if !ok {
		c = &cohortAcc{info: info, minGrade: info.grade, rows: make(map[string]*Row)}
		b.cohorts[info.key] = c
	}
	if info.grade.Ordinal() < c.minGrade.Ordinal() {
		c.minGrade = info.grade
	}
	return c
}

type cohortAcc struct {
	info     cohortInfo
	minGrade model.Grade
	rows     map[string]*Row
}

func (c *cohortAcc) addMeal(m *model.Meal, dessertLast bool) {
	row, ok := c.rows[m.DinerID]
	if !ok {
		row = &Row{DinerID: m.DinerID, DinerName: m.DinerName()}
		c.rows[m.DinerID] = row
	}
	sorted := SortItems(m.Items, dessertLast)
	names := make([]string, len(sorted))
	for i, it := range sorted {
		names[i] = it.Name
	}
	row.Meals = append(row.Meals, RowMeal{MealID: m.MealID, Items: names})
}

func (c *cohortAcc) build() Cohort {
	out := Cohort{
		Title: c.info.title,
		Kind:  c.info.key.kind,
		Rows:  make([]Row, 0, len(c.rows)),
	}
	switch c.info.key.kind {
	case CohortClassroom:
		out.TeacherID = c.info.key.id
		out.Grade = c.minGrade
	case CohortGrade:
		out.Grade = c.info.grade
	}
	for _, row := range c.rows {
		out.Rows = append(out.Rows, *row)
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		a, b := strings.ToLower(out.Rows[i].DinerName), strings.ToLower(out.Rows[j].DinerName)
		if a != b {
			return a < b
		}
		return out.Rows[i].DinerID < out.Rows[j].DinerID
	})
	return out
}

type tallyKey struct {
	name     string
	category model.Category
}

type tallyAcc struct {
	counts map[tallyKey]*Tally
}

func newTallyAcc() *tallyAcc {
	return &tallyAcc{counts: make(map[tallyKey]*Tally)}
}

func (t *tallyAcc) add(items []model.MealItem) {
	for _, it := range items {
		k := tallyKey{name: strings.ToLower(strings.TrimSpace(it.Name)), category: it.Category}
		if tl, ok := t.counts[k]; ok {
			tl.Quantity++
			continue
		}
		t.counts[k] = &Tally{Name: strings.TrimSpace(it.Name), Category: it.Category, Quantity: 1}
	}
}

func (t *tallyAcc) sorted() []Tally {
	out := make([]Tally, 0, len(t.counts))
	for _, tl := range t.counts {
		out = append(out, *tl)
	}
	sort.Slice(out, func(i, j int) bool {
		return itemLess(out[i].Category, out[i].Name, out[j].Category, out[j].Name, false)
	})
	return out
}

// ── 排序 ──

func sortedBuckets(buckets map[string]*bucketAcc) []ReportBucket {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return timeLess(keys[i], keys[j]) })
	if _, ok := buckets[""]; ok {
		keys = append(keys, "")
	}

	out := make([]ReportBucket, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		rb := ReportBucket{Label: OtherBucketLabel, Tallies: b.tally.sorted()}
		if k != "" {
			t := k
			rb.Time = &t
			rb.Label = calendar.ToTwelveHourTime(k)
		}
		rb.Cohorts = sortedCohorts(b.cohorts)
		out = append(out, rb)
	}
	return out
}

func sortedCohorts(cohorts map[cohortKey]*cohortAcc) []Cohort {
	accs := make([]*cohortAcc, 0, len(cohorts))
	for _, c := range cohorts {
		accs = append(accs, c)
	}
	sort.Slice(accs, func(i, j int) bool {
		a, b := accs[i], accs[j]
		aStaff, bStaff := a.info.key.kind == CohortStaff, b.info.key.kind == CohortStaff
		if aStaff != bStaff {
			return bStaff
		}
		if ao, bo := a.minGrade.Ordinal(), b.minGrade.Ordinal(); ao != bo {
			return ao < bo
		}
		if a.info.key.kind != b.info.key.kind {
			return a.info.key.kind == CohortClassroom
		}
		at, bt := strings.ToLower(a.info.title), strings.ToLower(b.info.title)
		if at != bt {
			return at < bt
		}
		return a.info.key.id < b.info.key.id
	})
	out := make([]Cohort, 0, len(accs))
	for _, c := range accs {
		out = append(out, c.build())
	}
	return out
}

// SortItems 按类别序号、名称（不区分大小写）排序，返回副本。
// dessertLast 为 true 时，名称含 dessert 的菜品排在同类别其他菜品之后。
func SortItems(items []model.MealItem, dessertLast bool) []model.MealItem {
	out := append([]model.MealItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return itemLess(out[i].Category, out[i].Name, out[j].Category, out[j].Name, dessertLast)
	})
	return out
}

func itemLess(ac model.Category, an string, bc model.Category, bn string, dessertLast bool) bool {
	if ao, bo := ac.Ordinal(), bc.Ordinal(); ao != bo {
		return ao < bo
	}
	al, bl := strings.ToLower(an), strings.ToLower(bn)
	if dessertLast {
		ad, bd := strings.Contains(al, "dessert"), strings.Contains(bl, "dessert")
		if ad != bd {
			return bd
		}
	}
	if al != bl {
		return al < bl
	}
	return an < bn
}

func normalizeTime(t string) string {
	if n, err := calendar.NormalizeClock(t); err == nil {
		return n
	}
	return strings.TrimSpace(t)
}

func timeLess(a, b string) bool {
	am, aerr := calendar.ParseClock(a)
	bm, berr := calendar.ParseClock(b)
	switch {
	case aerr == nil && berr == nil:
		return am < bm
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
