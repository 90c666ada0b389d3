package engine

import (
	"math"
	"strings"

	"github.com/xonn9/Unilag-Price-saver/internal/model"
)

// FilterCriteria 描述一次过滤的复合条件。
//
// 条件来源于 UI 状态，不做持久化。零值表示对应维度不限制。
type FilterCriteria struct {
	CategoryID        uint    // 0 表示不限分类
	MinPrice          float64 // 最低价（默认 0）
	MaxPrice          float64 // 最高价（<=0 表示不限）
	RetailerSubstring string  // 商家子串（空表示不限）
	LocationSubstring string  // 地点子串（空表示不限）
}

// bounded 报告价格维度是否存在有效边界。
func (c FilterCriteria) bounded() bool {
	return c.MinPrice > 0 || c.MaxPrice > 0
}

// Apply 对快照应用复合过滤条件。
//
// 纯函数：无副作用，结果保持快照原有顺序（稳定过滤，不重排序）。
// 记录需同时满足全部条件才被保留；价格非有限数（NaN/Inf）的记录
// 永远不会匹配带边界的价格过滤。
func Apply(snap *Snapshot, criteria FilterCriteria) []model.PriceRecord {
	if snap == nil {
		return nil
	}

	out := make([]model.PriceRecord, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if !matches(rec, criteria) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matches(rec model.PriceRecord, c FilterCriteria) bool {
	if c.CategoryID != 0 && rec.CategoryID != c.CategoryID {
		return false
	}

	if c.bounded() && !isFinite(rec.Price) {
		return false
	}
	if rec.Price < c.MinPrice {
		return false
	}
	if c.MaxPrice > 0 && rec.Price > c.MaxPrice {
		return false
	}

	if c.RetailerSubstring != "" && !containsFold(rec.Retailer, c.RetailerSubstring) {
		return false
	}
	if c.LocationSubstring != "" && !containsFold(rec.Location, c.LocationSubstring) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
