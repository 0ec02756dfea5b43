package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	openBrackets  = regexp.MustCompile(`[\[{]`)
	closeBrackets = regexp.MustCompile(`[\]}]`)
	unsafeRuns    = regexp.MustCompile(`[^\w!$&'()*,;=\-]+`)
	dashRuns      = regexp.MustCompile(`-{2,}`)
)

// Slugify 把名称转换为 URL 片段
func Slugify(name string) string {
	slug := openBrackets.ReplaceAllString(name, "(")
	slug = closeBrackets.ReplaceAllString(slug, ")")
	slug = unsafeRuns.ReplaceAllString(slug, "-")
	return dashRuns.ReplaceAllString(slug, "-")
}

// ResourceParam 生成 "id;slug" 形式的 URL 参数, workSafe 时只暴露数字 id
func ResourceParam(id uint64, name string, workSafe bool) string {
	idStr := strconv.FormatUint(id, 10)
	if workSafe {
		return idStr
	}
	return idStr + ";" + Slugify(name)
}

// ParseParamID 从 "id;slug" 或 "id" 中解析出 id
func ParseParamID(param string) (uint64, error) {
	idPart, _, _ := strings.Cut(param, ";")
	return strconv.ParseUint(idPart, 10, 64)
}
