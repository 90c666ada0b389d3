package engine

// Stats 是一组价格的描述性统计。
//
// 空集合上的 Average/Min/Max 定义为 0（而非 NaN 或错误），
// 以便下游展示代码无需分支。
type Stats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summary 是一次聚合的完整输出。
type Summary struct {
	Total             Stats          `json:"total"`
	PerCategory       map[uint]Stats `json:"per_category"`
	DistinctRetailers int            `json:"distinct_retailers"`
	DistinctLocations int            `json:"distinct_locations"`
}

// Aggregate 计算快照的全局与分类统计。
//
// 去重计数只统计非空的 retailer/location 值；空值不计入，
// 也不会折叠成一个 "unknown" 桶。
func Aggregate(snap *Snapshot) Summary {
	summary := Summary{
		PerCategory: map[uint]Stats{},
	}
	if snap == nil {
		return summary
	}

	type acc struct {
		count int
		sum   float64
		min   float64
		max   float64
	}

	var total acc
	perCat := map[uint]*acc{}
	retailers := map[string]struct{}{}
	locations := map[string]struct{}{}

	add := func(a *acc, price float64) {
		if a.count == 0 {
			a.min = price
			a.max = price
		} else {
			if price < a.min {
				a.min = price
			}
			if price > a.max {
				a.max = price
			}
		}
		a.count++
		a.sum += price
	}

	for _, rec := range snap.Records {
		if !isFinite(rec.Price) {
			continue
		}
		add(&total, rec.Price)

		ca, ok := perCat[rec.CategoryID]
		if !ok {
			ca = &acc{}
			perCat[rec.CategoryID] = ca
		}
		add(ca, rec.Price)

		if rec.Retailer != "" {
			retailers[rec.Retailer] = struct{}{}
		}
		if rec.Location != "" {
			locations[rec.Location] = struct{}{}
		}
	}

	toStats := func(a acc) Stats {
		s := Stats{Count: a.count, Min: a.min, Max: a.max}
		if a.count > 0 {
			s.Average = a.sum / float64(a.count)
		}
		return s
	}

	summary.Total = toStats(total)
	for id, a := range perCat {
		summary.PerCategory[id] = toStats(*a)
	}
	summary.DistinctRetailers = len(retailers)
	summary.DistinctLocations = len(locations)
	return summary
}
