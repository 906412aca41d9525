package utils

import (
	"math"
	"strconv"
	"strings"
)

func UintToPtr(v uint) *uint {
	return &v
}

func IntToPtr(v int) *int {
	return &v
}

func StringToPtr(v string) *string {
	return &v
}

func Float64ToPtr(v float64) *float64 {
	return &v
}

// ParseUintParam 解析路径或查询参数中的非负整数 ID。
func ParseUintParam(raw string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, WrapErrorf(err, "parse uint(%#v) fail", raw)
	}

	return uint(v), nil
}

// Round2 保留两位小数。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
