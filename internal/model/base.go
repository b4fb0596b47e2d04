package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ── 竖线分隔多值列 ──
//
// 排班时间、年级等多值字段在库中以 "12:00|12:30"、"3|4|5" 形式存储，
// 仅在存取边界编解码，业务逻辑只操作切片。

const pipeSeparator = "|"

func splitPipe(src interface{}, typeName string) ([]string, error) {
	if src == nil {
		return nil, nil
	}
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return nil, fmt.Errorf("%s.Scan: unsupported type %T", typeName, src)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}, nil
	}
	parts := strings.Split(s, pipeSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// PipeList 竖线分隔的字符串列表（时间段列表）
type PipeList []string

// Scan 将 "12:00|12:30" 解析为 []string
func (l *PipeList) Scan(src interface{}) error {
	parts, err := splitPipe(src, "PipeList")
	if err != nil {
		return err
	}
	if parts == nil {
		*l = nil
		return nil
	}
	*l = PipeList(parts)
	return nil
}

// Value 序列化为 "12:00|12:30"
func (l PipeList) Value() (driver.Value, error) {
	return strings.Join(l, pipeSeparator), nil
}

// First 第一个值；空列表返回 ""
func (l PipeList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// GradeList 竖线分隔的年级列表
type GradeList []Grade

// Scan 将 "3|4|5" 解析为 []Grade
func (l *GradeList) Scan(src interface{}) error {
	parts, err := splitPipe(src, "GradeList")
	if err != nil {
		return err
	}
	if parts == nil {
		*l = nil
		return nil
	}
	grades := make(GradeList, 0, len(parts))
	for _, p := range parts {
		g, err := ParseGrade(p)
		if err != nil {
			return fmt.Errorf("GradeList.Scan: %w", err)
		}
		grades = append(grades, g)
	}
	*l = grades
	return nil
}

// Value 序列化为 "3|4|5"
func (l GradeList) Value() (driver.Value, error) {
	parts := make([]string, len(l))
	for i, g := range l {
		parts[i] = string(g)
	}
	return strings.Join(parts, pipeSeparator), nil
}

// Contains 是否包含指定年级
func (l GradeList) Contains(g Grade) bool {
	for _, x := range l {
		if x == g {
			return true
		}
	}
	return false
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"    json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}
