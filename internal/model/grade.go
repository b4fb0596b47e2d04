package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Grade 年级代码：PK（学前）、K（幼儿园）、1..12
type Grade string

const (
	GradePreK         Grade = "PK"
	GradeKindergarten Grade = "K"
)

// ParseGrade 解析年级代码，兼容 "pre-k"、"kindergarten"、"03" 等写法
func ParseGrade(s string) (Grade, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "PK", "PRE-K", "PREK":
		return GradePreK, nil
	case "K", "KG", "KINDERGARTEN":
		return GradeKindergarten, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 12 {
		return "", fmt.Errorf("无效的年级 %q", s)
	}
	return Grade(strconv.Itoa(n)), nil
}

// Ordinal 排序序号：PK=-1，K=0，1..12；未知年级排在最后
func (g Grade) Ordinal() int {
	switch g {
	case GradePreK:
		return -1
	case GradeKindergarten:
		return 0
	}
	if n, err := strconv.Atoi(string(g)); err == nil {
		return n
	}
	return 100
}

// Label 展示名称
func (g Grade) Label() string {
	switch g {
	case GradePreK:
		return "Pre-K"
	case GradeKindergarten:
		return "Kindergarten"
	case "":
		return "Unknown Grade"
	}
	return "Grade " + string(g)
}
