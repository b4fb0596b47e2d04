package model

import "strings"

// 用户角色
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleParent = "parent"
)

// User 用户表 — 对应 users（教职工本人也是就餐者）
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string `gorm:"type:varchar(50);not null;uniqueIndex"          json:"username"`
	FirstName    string `gorm:"type:varchar(50);not null;default:''"           json:"first_name"`
	LastName     string `gorm:"type:varchar(50);not null;default:''"           json:"last_name"`
	Email        string `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'parent'"     json:"role"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// DisplayName 姓名；姓名均为空时退回用户名
func (u *User) DisplayName() string {
	return displayName(u.FirstName, u.LastName, u.Username)
}

// Student 学生表 — 对应 students
type Student struct {
	StudentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	ParentID  string `gorm:"type:uuid;not null;index"                       json:"parent_id"`
	FirstName string `gorm:"type:varchar(50);not null"                      json:"first_name"`
	LastName  string `gorm:"type:varchar(50);not null;default:''"           json:"last_name"`
	Grade     Grade  `gorm:"type:varchar(4);not null"                       json:"grade"` // 注册年级
	VersionedModel

	// 关联
	Parent *User `gorm:"foreignKey:ParentID;references:UserID" json:"parent,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// DisplayName 学生姓名
func (s *Student) DisplayName() string {
	return displayName(s.FirstName, s.LastName, "")
}

func displayName(first, last, fallback string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return fallback
	}
	return name
}
