//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
	"github.com/TonyV66/LunchSystem-sub000/internal/repository"
	"github.com/TonyV66/LunchSystem-sub000/pkg/calendar"
	"github.com/TonyV66/LunchSystem-sub000/pkg/database"
	pkgerrors "github.com/TonyV66/LunchSystem-sub000/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=lunch password=lunch_password dbname=lunch_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用与生产一致的 SQL 迁移建表
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type testData struct {
	parent  *model.User
	teacher *model.User
	student *model.Student
	year    *model.SchoolYear
	menu    *model.DailyMenu
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (*testData, func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	td := &testData{}

	td.parent = &model.User{Username: fmt.Sprintf("parent-%d", suffix), FirstName: "Pat", PasswordHash: "x", Role: model.RoleParent}
	td.teacher = &model.User{Username: fmt.Sprintf("teacher-%d", suffix), LastName: "Smith", PasswordHash: "x", Role: model.RoleStaff}
	for _, u := range []*model.User{td.parent, td.teacher} {
		if err := testDB.WithContext(ctx).Create(u).Error; err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	td.student = &model.Student{ParentID: td.parent.UserID, FirstName: "Sam", LastName: "Lee", Grade: "3"}
	if err := testDB.WithContext(ctx).Create(td.student).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}

	td.year = &model.SchoolYear{
		Name:                  fmt.Sprintf("测试学年-%d", suffix),
		StartDate:             calendar.MustParseDate("2026-08-20"),
		EndDate:               calendar.MustParseDate("2027-06-10"),
		GradesAssignedByClass: model.GradeList{"3"},
	}
	if err := testDB.WithContext(ctx).Omit("LunchTimes", "StudentLunchTimes", "TeacherLunchTimes", "GradeLunchTimes").Create(td.year).Error; err != nil {
		t.Fatalf("创建学年失败: %v", err)
	}

	items := []model.PantryItem{
		{Name: "Pizza", Category: model.CategoryEntree},
		{Name: "Apple", Category: model.CategorySide},
		{Name: "Milk", Category: model.CategoryDrink},
	}
	if err := testDB.WithContext(ctx).Create(&items).Error; err != nil {
		t.Fatalf("创建菜品失败: %v", err)
	}
	td.menu = &model.DailyMenu{
		Date:             calendar.MustParseDate("2026-10-21"),
		Price:            500,
		DrinkOnlyPrice:   200,
		NumSidesWithMeal: 1,
		Items:            []model.PantryItem{items[2], items[0], items[1]},
	}
	repo := repository.NewRepository(testDB)
	if err := repo.Menu.Create(ctx, td.menu); err != nil {
		t.Fatalf("创建菜单失败: %v", err)
	}

	cleanup := func() {
		testDB.Exec("DELETE FROM orders WHERE user_id = ?", td.parent.UserID)
		testDB.Exec("DELETE FROM school_years WHERE school_year_id = ?", td.year.SchoolYearID)
		testDB.Exec("DELETE FROM daily_menus WHERE daily_menu_id = ?", td.menu.DailyMenuID)
		for _, p := range items {
			testDB.Exec("DELETE FROM pantry_items WHERE pantry_item_id = ?", p.PantryItemID)
		}
		testDB.Exec("DELETE FROM students WHERE student_id = ?", td.student.StudentID)
		testDB.Exec("DELETE FROM users WHERE user_id IN ?", []string{td.parent.UserID, td.teacher.UserID})
	}
	return td, cleanup
}

// ═══════════════════════════════════════════════════════════
// MenuRepo
// ═══════════════════════════════════════════════════════════

func TestMenuRepo_ItemsKeepSortOrder(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	menu, err := repository.NewMenuRepo(testDB).GetByID(context.Background(), td.menu.DailyMenuID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(menu.Items) != 3 || menu.Items[0].Name != "Milk" || menu.Items[1].Name != "Pizza" {
		t.Errorf("菜品应按 sort_order 返回，实际 %+v", menu.Items)
	}
	if menu.Price != 500 || menu.NumSidesWithMeal != 1 {
		t.Errorf("菜单字段错误: %+v", menu)
	}
}

// ═══════════════════════════════════════════════════════════
// SchoolYearRepo
// ═══════════════════════════════════════════════════════════

func TestSchoolYearRepo_UpdateSettings_OptimisticLock(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewSchoolYearRepo(testDB)

	year, err := repo.GetByID(ctx, td.year.SchoolYearID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	stale := *year

	year.GradesAssignedByClass = model.GradeList{"K", "3"}
	defaults := []model.SchoolYearLunchTime{
		{SchoolYearID: year.SchoolYearID, DayOfWeek: 3, Times: model.PipeList{"11:30", "12:15"}},
	}
	if err := repo.UpdateSettings(ctx, year, defaults); err != nil {
		t.Fatalf("UpdateSettings 失败: %v", err)
	}
	if year.Version != 2 {
		t.Errorf("版本号应递增到 2，实际 %d", year.Version)
	}

	if err := repo.UpdateSettings(ctx, &stale, nil); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("旧版本更新应返回 ErrOptimisticLock，实际: %v", err)
	}

	got, _ := repo.GetByID(ctx, td.year.SchoolYearID)
	if len(got.GradesAssignedByClass) != 2 || len(got.LunchTimes) != 1 || got.LunchTimes[0].Times.First() != "11:30" {
		t.Errorf("更新结果错误: %+v", got)
	}
}

func TestSchoolYearRepo_ReplaceStudentLunchTimes(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewSchoolYearRepo(testDB)

	teacherID := td.teacher.UserID
	first := []model.StudentLunchTime{
		{SchoolYearID: td.year.SchoolYearID, StudentID: td.student.StudentID, Grade: "3", DayOfWeek: 1, TeacherID: &teacherID},
		{SchoolYearID: td.year.SchoolYearID, StudentID: td.student.StudentID, Grade: "3", DayOfWeek: 3, TeacherID: &teacherID},
	}
	if err := repo.ReplaceStudentLunchTimes(ctx, td.year.SchoolYearID, td.student.StudentID, first); err != nil {
		t.Fatalf("首次替换失败: %v", err)
	}

	second := []model.StudentLunchTime{
		{SchoolYearID: td.year.SchoolYearID, StudentID: td.student.StudentID, Grade: "3", DayOfWeek: 3, Time: "12:45"},
	}
	if err := repo.ReplaceStudentLunchTimes(ctx, td.year.SchoolYearID, td.student.StudentID, second); err != nil {
		t.Fatalf("二次替换失败: %v", err)
	}

	rows, err := repo.ListStudentLunchTimes(ctx, td.year.SchoolYearID, td.student.StudentID)
	if err != nil {
		t.Fatalf("ListStudentLunchTimes 失败: %v", err)
	}
	if len(rows) != 1 || rows[0].Time != "12:45" || rows[0].TeacherID != nil {
		t.Errorf("替换后应仅剩周三 12:45，实际 %+v", rows)
	}
}

func TestSchoolYearRepo_GetForDate(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewSchoolYearRepo(testDB)

	if err := repo.ReplaceTeacherLunchTimes(ctx, td.year.SchoolYearID, td.teacher.UserID, []model.TeacherLunchTime{
		{SchoolYearID: td.year.SchoolYearID, TeacherID: td.teacher.UserID, DayOfWeek: 3, Times: model.PipeList{"12:15"}, Grades: model.GradeList{"3"}},
	}); err != nil {
		t.Fatalf("ReplaceTeacherLunchTimes 失败: %v", err)
	}

	year, err := repo.GetForDate(ctx, calendar.MustParseDate("2026-10-21"))
	if err != nil {
		t.Fatalf("GetForDate 失败: %v", err)
	}
	if len(year.TeacherLunchTimes) == 0 {
		t.Error("应预加载教师午餐时间")
	}
	if _, err := repo.GetForDate(ctx, calendar.MustParseDate("1999-07-01")); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("学年外日期应返回 ErrRecordNotFound，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// OrderRepo / MealRepo
// ═══════════════════════════════════════════════════════════

func TestOrderRepo_CreateListDelete(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	day := calendar.MustParseDate("2026-10-21")

	order := &model.Order{
		UserID: td.parent.UserID,
		Total:  500,
		Meals: []model.Meal{{
			Date:      day,
			DinerID:   td.student.StudentID,
			DinerKind: model.DinerStudent,
			Items: []model.MealItem{
				{MealItemID: uuid.NewString(), PantryItemID: td.menu.Items[1].PantryItemID, Name: "Pizza", Category: model.CategoryEntree, Price: 500},
				{MealItemID: uuid.NewString(), PantryItemID: td.menu.Items[0].PantryItemID, Name: "Milk", Category: model.CategoryDrink},
			},
		}},
	}
	if err := repo.Order.Create(ctx, order); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if order.OrderID == "" || order.Meals[0].MealID == "" {
		t.Fatal("应回填订单与餐点 ID")
	}

	orders, total, err := repo.Order.ListByUser(ctx, td.parent.UserID, 0, 10)
	if err != nil || total != 1 || len(orders[0].Meals[0].Items) != 2 {
		t.Fatalf("ListByUser 结果错误: total=%d err=%v", total, err)
	}

	meals, err := repo.Meal.ListByDate(ctx, day)
	if err != nil {
		t.Fatalf("ListByDate 失败: %v", err)
	}
	var found bool
	for _, m := range meals {
		if m.MealID == order.Meals[0].MealID {
			found = true
			if m.DinerName() != "Sam Lee" {
				t.Errorf("应预加载学生姓名，实际 %q", m.DinerName())
			}
		}
	}
	if !found {
		t.Error("ListByDate 未返回新餐点")
	}

	if err := repo.Order.Delete(ctx, order.OrderID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if err := repo.Order.Delete(ctx, order.OrderID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除应返回 ErrRecordNotFound，实际: %v", err)
	}
	var left int64
	testDB.Model(&model.MealItem{}).Where("meal_id = ?", order.Meals[0].MealID).Count(&left)
	if left != 0 {
		t.Errorf("餐点明细应一并删除，剩余 %d", left)
	}
}

func TestRepository_Ping(t *testing.T) {
	if err := repository.NewRepository(testDB).Ping(context.Background()); err != nil {
		t.Errorf("Ping 失败: %v", err)
	}
}
