package engine

import (
	"strings"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

// SearchDisplayLimit 是搜索结果的展示上限。
//
// 上限只影响返回条数，不改变匹配语义。
const SearchDisplayLimit = 6

// Search 在快照上做增量子串搜索。
//
// 匹配字段: name / retailer / location / brand，大小写不敏感。
// 空查询等价于清除过滤，返回完整快照。结果保持快照顺序。
func Search(snap *Snapshot, query string) []model.PriceRecord {
	if snap == nil {
		return nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return snap.Records
	}

	q := strings.ToLower(query)
	out := make([]model.PriceRecord, 0)
	for _, rec := range snap.Records {
		if containsFold(rec.Name, q) ||
			containsFold(rec.Retailer, q) ||
			containsFold(rec.Location, q) ||
			containsFold(rec.Brand, q) {
			out = append(out, rec)
		}
	}
	return out
}

// SearchTop 返回应用展示上限后的搜索结果。
func SearchTop(snap *Snapshot, query string) []model.PriceRecord {
	out := Search(snap, query)
	if len(out) > SearchDisplayLimit {
		out = out[:SearchDisplayLimit]
	}
	return out
}
