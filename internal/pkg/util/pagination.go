package util

// Page 分页结果元数据
type Page struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total_entries"`
	Pages    int   `json:"pages"`
}

// NewPage 规范化页码, page 小于 1 时取 1
func NewPage(page, pageSize int, total int64) Page {
	if page < 1 {
		page = 1
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page{Page: page, PageSize: pageSize, Total: total, Pages: pages}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageForIndex 返回第 index 个元素 (从 0 开始) 所在的页
func PageForIndex(index, pageSize int) int {
	if index < 0 || pageSize <= 0 {
		return 1
	}
	return index/pageSize + 1
}
