package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/TonyV66/LunchSystem-sub000/config"
	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
	pkgerrors "github.com/TonyV66/LunchSystem-sub000/pkg/errors"
	"github.com/TonyV66/LunchSystem-sub000/pkg/redis"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var out []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, s *model.Student) error {
	m.students[s.StudentID] = s
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByIDs(_ context.Context, ids []string) ([]model.Student, error) {
	var out []model.Student
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) ListByParent(_ context.Context, parentID string) ([]model.Student, error) {
	var out []model.Student
	for _, s := range m.students {
		if s.ParentID == parentID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

// ── Mock MenuRepository ──

type mockMenuRepo struct {
	menus map[string]*model.DailyMenu
}

func newMockMenuRepo() *mockMenuRepo {
	return &mockMenuRepo{menus: make(map[string]*model.DailyMenu)}
}

func (m *mockMenuRepo) Create(_ context.Context, menu *model.DailyMenu) error {
	m.menus[menu.DailyMenuID] = menu
	return nil
}

func (m *mockMenuRepo) GetByID(_ context.Context, id string) (*model.DailyMenu, error) {
	if menu, ok := m.menus[id]; ok {
		return menu, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMenuRepo) ListByIDs(_ context.Context, ids []string) ([]model.DailyMenu, error) {
	var out []model.DailyMenu
	for _, id := range ids {
		if menu, ok := m.menus[id]; ok {
			out = append(out, *menu)
		}
	}
	return out, nil
}

// ── Mock SchoolYearRepository ──

type mockSchoolYearRepo struct {
	years map[string]*model.SchoolYear
}

func newMockSchoolYearRepo() *mockSchoolYearRepo {
	return &mockSchoolYearRepo{years: make(map[string]*model.SchoolYear)}
}

func (m *mockSchoolYearRepo) GetByID(_ context.Context, id string) (*model.SchoolYear, error) {
	if y, ok := m.years[id]; ok {
		cp := *y
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolYearRepo) GetForDate(_ context.Context, date time.Time) (*model.SchoolYear, error) {
	for _, y := range m.years {
		if y.Contains(date) {
			cp := *y
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSchoolYearRepo) UpdateSettings(_ context.Context, year *model.SchoolYear, defaults []model.SchoolYearLunchTime) error {
	stored, ok := m.years[year.SchoolYearID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != year.Version {
		return pkgerrors.ErrOptimisticLock
	}
	year.Version++
	year.LunchTimes = defaults
	stored.Version = year.Version
	stored.GradesAssignedByClass = year.GradesAssignedByClass
	stored.LunchTimes = defaults
	return nil
}

func (m *mockSchoolYearRepo) ListStudentLunchTimes(_ context.Context, yearID, studentID string) ([]model.StudentLunchTime, error) {
	var out []model.StudentLunchTime
	if y, ok := m.years[yearID]; ok {
		for _, r := range y.StudentLunchTimes {
			if r.StudentID == studentID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (m *mockSchoolYearRepo) ReplaceStudentLunchTimes(_ context.Context, yearID, studentID string, rows []model.StudentLunchTime) error {
	y := m.years[yearID]
	kept := y.StudentLunchTimes[:0:0]
	for _, r := range y.StudentLunchTimes {
		if r.StudentID != studentID {
			kept = append(kept, r)
		}
	}
	y.StudentLunchTimes = append(kept, rows...)
	return nil
}

func (m *mockSchoolYearRepo) ReplaceTeacherLunchTimes(_ context.Context, yearID, teacherID string, rows []model.TeacherLunchTime) error {
	y := m.years[yearID]
	kept := y.TeacherLunchTimes[:0:0]
	for _, r := range y.TeacherLunchTimes {
		if r.TeacherID != teacherID {
			kept = append(kept, r)
		}
	}
	y.TeacherLunchTimes = append(kept, rows...)
	return nil
}

func (m *mockSchoolYearRepo) ReplaceGradeLunchTimes(_ context.Context, yearID string, grade model.Grade, rows []model.GradeLunchTime) error {
	y := m.years[yearID]
	kept := y.GradeLunchTimes[:0:0]
	for _, r := range y.GradeLunchTimes {
		if r.Grade != grade {
			kept = append(kept, r)
		}
	}
	y.GradeLunchTimes = append(kept, rows...)
	return nil
}

// ── Mock OrderRepository / MealRepository ──

type mockOrderRepo struct {
	orders map[string]*model.Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*model.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.CreatedAt = time.Now()
	m.orders[order.OrderID] = order
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			all = append(all, *o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderID < all[j].OrderID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.orders[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.orders, id)
	return nil
}

// mockMealRepo 直接读取 mockOrderRepo 中的餐点
type mockMealRepo struct {
	orders   *mockOrderRepo
	students *mockStudentRepo
	users    *mockUserRepo
	calls    int
}

func (m *mockMealRepo) ListByDate(_ context.Context, date time.Time) ([]model.Meal, error) {
	m.calls++
	var out []model.Meal
	ids := make([]string, 0, len(m.orders.orders))
	for id := range m.orders.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, meal := range m.orders.orders[id].Meals {
			if !calendar.SameDate(meal.Date, date) {
				continue
			}
			if s, ok := m.students.students[meal.DinerID]; ok {
				meal.Student = s
			}
			if u, ok := m.users.users[meal.DinerID]; ok {
				meal.Staff = u
			}
			out = append(out, meal)
		}
	}
	return out, nil
}

// ── Mock Cache / Blacklist / Store ──

type mockCache struct {
	mu      sync.Mutex
	data    map[string]string
	deleted []string
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dst interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal([]byte(v), dst)
}

func (c *mockCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = string(b)
	return nil
}

func (c *mockCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	prefix, suffix, _ := strings.Cut(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) && strings.HasSuffix(k, suffix) {
			delete(c.data, k)
		}
	}
	return nil
}

type mockBlacklist struct {
	tokens map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{tokens: make(map[string]time.Duration)}
}

func (b *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.tokens[jti] = ttl
	return nil
}

func (b *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := b.tokens[jti]
	return ok, nil
}

type mockStore struct {
	objects map[string][]byte
	fail    error
}

func (s *mockStore) Put(_ context.Context, key, _ string, body []byte) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = body
	return key, nil
}

// ── 测试夹具 ──

type fixture struct {
	cfg      *config.Config
	repo     *repository.Repository
	users    *mockUserRepo
	students *mockStudentRepo
	menus    *mockMenuRepo
	years    *mockSchoolYearRepo
	orders   *mockOrderRepo
	meals    *mockMealRepo
	cache    *mockCache
	logger   *zap.Logger
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		School: config.SchoolConfig{
			Timezone:      "America/New_York",
			LunchDuration: 30 * time.Minute,
			DessertLast:   true,
		},
		Report: config.ReportConfig{CacheTTL: time.Minute},
	}
}

func hashPassword(pw string) string {
	h, _ := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	return string(h)
}

func strPtr(s string) *string { return &s }

// newFixture 预置：管理员、教职工 T（Smith）、家长 P 及其孩子 S1（3 年级）、
// 其他家长的孩子 S2（4 年级）、2026-10-21（周三）菜单与 2026-27 学年
func newFixture() *fixture {
	fx := &fixture{
		cfg:      testConfig(),
		users:    newMockUserRepo(),
		students: newMockStudentRepo(),
		menus:    newMockMenuRepo(),
		years:    newMockSchoolYearRepo(),
		orders:   newMockOrderRepo(),
		cache:    newMockCache(),
		logger:   zap.NewNop(),
	}
	fx.meals = &mockMealRepo{orders: fx.orders, students: fx.students, users: fx.users}
	fx.repo = &repository.Repository{
		User:       fx.users,
		Student:    fx.students,
		Menu:       fx.menus,
		SchoolYear: fx.years,
		Order:      fx.orders,
		Meal:       fx.meals,
	}

	pw := hashPassword("Passw0rd!")
	_ = fx.users.Create(context.Background(), &model.User{UserID: "admin", Username: "admin", Role: model.RoleAdmin, PasswordHash: pw})
	_ = fx.users.Create(context.Background(), &model.User{UserID: "T", Username: "tsmith", LastName: "Smith", Role: model.RoleStaff, PasswordHash: pw})
	_ = fx.users.Create(context.Background(), &model.User{UserID: "P", Username: "parent", FirstName: "Pat", Role: model.RoleParent, PasswordHash: pw})
	_ = fx.users.Create(context.Background(), &model.User{UserID: "P2", Username: "other", Role: model.RoleParent, PasswordHash: pw})
	_ = fx.students.Create(context.Background(), &model.Student{StudentID: "S1", ParentID: "P", FirstName: "Sam", LastName: "Lee", Grade: "3"})
	_ = fx.students.Create(context.Background(), &model.Student{StudentID: "S2", ParentID: "P2", FirstName: "Ann", LastName: "Bo", Grade: "4"})

	fx.menus.menus["menu-1"] = &model.DailyMenu{
		DailyMenuID:      "menu-1",
		Date:             calendar.MustParseDate("2026-10-21"),
		Price:            500,
		DrinkOnlyPrice:   200,
		NumSidesWithMeal: 2,
		Items: []model.PantryItem{
			{PantryItemID: "entreeA", Name: "Pizza", Category: model.CategoryEntree},
			{PantryItemID: "entreeB", Name: "Tacos", Category: model.CategoryEntree},
			{PantryItemID: "sideX", Name: "Apple", Category: model.CategorySide},
			{PantryItemID: "sideY", Name: "Carrots", Category: model.CategorySide},
			{PantryItemID: "sideZ", Name: "Corn", Category: model.CategorySide},
			{PantryItemID: "dessert", Name: "Cookie", Category: model.CategoryDessert},
			{PantryItemID: "drink", Name: "Milk", Category: model.CategoryDrink},
		},
	}

	wed := int(calendar.Wednesday)
	fx.years.years["y1"] = &model.SchoolYear{
		SchoolYearID:          "y1",
		Name:                  "2026-27",
		StartDate:             calendar.MustParseDate("2026-08-20"),
		EndDate:               calendar.MustParseDate("2027-06-10"),
		IsCurrent:             true,
		GradesAssignedByClass: model.GradeList{"3"},
		VersionedModel:        model.VersionedModel{Version: 1},
		LunchTimes: []model.SchoolYearLunchTime{
			{DayOfWeek: wed, Times: model.PipeList{"11:30", "12:15"}},
		},
		TeacherLunchTimes: []model.TeacherLunchTime{
			{TeacherID: "T", DayOfWeek: wed, Times: model.PipeList{"12:15"}, Teacher: fx.users.users["T"]},
		},
		GradeLunchTimes: []model.GradeLunchTime{
			{Grade: "4", DayOfWeek: wed, Times: model.PipeList{"11:30"}},
		},
		StudentLunchTimes: []model.StudentLunchTime{
			{StudentID: "S1", Grade: "3", DayOfWeek: wed, TeacherID: strPtr("T")},
			{StudentID: "S2", Grade: "4", DayOfWeek: wed},
		},
	}
	return fx
}
