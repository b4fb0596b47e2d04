package lunch

import (
	"errors"
	"fmt"

	"github.com/TonyV66/LunchSystem-sub000/internal/model"
)

// ── 核心引擎错误 ──
//
// Unassigned 不是错误，见 Slot。

var (
	ErrIncompleteSelection = errors.New("购物车选择数量不符合要求")
	ErrMenuNotFound        = errors.New("每日菜单不存在")
)

// IncompleteSelectionError 某类别需要 Expected 个选择，购物车提供了 Actual 个
type IncompleteSelectionError struct {
	Category model.Category
	Expected int
	Actual   int
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("%s 需选择 %d 项，实际 %d 项", e.Category, e.Expected, e.Actual)
}

// Unwrap 支持 errors.Is(err, ErrIncompleteSelection)
func (e *IncompleteSelectionError) Unwrap() error { return ErrIncompleteSelection }

// MenuNotFoundError 购物车行引用的每日菜单不存在
type MenuNotFoundError struct {
	DailyMenuID string
}

func (e *MenuNotFoundError) Error() string {
	return fmt.Sprintf("每日菜单 %s 不存在", e.DailyMenuID)
}

// Unwrap 支持 errors.Is(err, ErrMenuNotFound)
func (e *MenuNotFoundError) Unwrap() error { return ErrMenuNotFound }

// IncompleteSelections 展开（可能经 errors.Join 合并的）错误中的全部选择数量错误
func IncompleteSelections(err error) []*IncompleteSelectionError {
	if err == nil {
		return nil
	}
	var out []*IncompleteSelectionError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case *IncompleteSelectionError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := x.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}
