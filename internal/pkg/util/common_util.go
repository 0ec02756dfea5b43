package util

import (
	"regexp"
	"strings"
)

var usernameSeparator = regexp.MustCompile(`\s*,\s*`)

// SplitUsernames 按逗号拆分用户名列表, 去掉空项与重复项, 保持原顺序
func SplitUsernames(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string
	for _, name := range usernameSeparator.Split(raw, -1) {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// PtrInt 用于将 int 转换为 *int
func PtrInt(i int) *int {
	return &i
}

// PtrStr 用于将 string 转换为 *string
func PtrStr(s string) *string {
	return &s
}

// PtrBool 用于将 bool 转换为 *bool
func PtrBool(b bool) *bool {
	return &b
}

// PtrUint64 用于将 uint64 转换为 *uint64
func PtrUint64(v uint64) *uint64 {
	return &v
}
