package engine

import (
	"sort"
	"strings"
	"time"
)

// CheapestPrice 返回指定商品在快照中的最低价。
//
// 商品名大小写不敏感精确匹配；无匹配记录时返回 0。
func CheapestPrice(snap *Snapshot, itemName string) float64 {
	if snap == nil {
		return 0
	}
	want := strings.ToLower(strings.TrimSpace(itemName))
	if want == "" {
		return 0
	}

	var cheapest float64
	found := false
	for _, rec := range snap.Records {
		if strings.ToLower(strings.TrimSpace(rec.Name)) != want {
			continue
		}
		if !isFinite(rec.Price) {
			continue
		}
		if !found || rec.Price < cheapest {
			cheapest = rec.Price
			found = true
		}
	}
	return cheapest
}

// SavingsReport 是当前价与最低价的对比。
type SavingsReport struct {
	CurrentPrice      float64 `json:"current_price"`
	CheapestPrice     float64 `json:"cheapest_price"`
	Savings           float64 `json:"savings"`
	SavingsPercentage float64 `json:"savings_percentage"`
}

// Savings 计算当前价相对最低价可省的金额与比例。
func Savings(currentPrice, cheapestPrice float64) SavingsReport {
	report := SavingsReport{
		CurrentPrice:  currentPrice,
		CheapestPrice: cheapestPrice,
		Savings:       currentPrice - cheapestPrice,
	}
	if currentPrice > 0 {
		report.SavingsPercentage = report.Savings / currentPrice * 100
	}
	return report
}

// HeatCell 是热力图中一个地点的聚合。
type HeatCell struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	AvgPrice  float64 `json:"avg_price"`
	MinPrice  float64 `json:"min_price"`
	MaxPrice  float64 `json:"max_price"`
	Intensity float64 `json:"intensity"`
}

// BuildHeatmap 按地点聚合指定商品在 since 之后的提交。
//
// 强度分数偏向「提交多且均价低」的地点:
// intensity = 0.7*normalized(count) + 0.3*normalized(1/avgPrice)。
// 结果按强度降序排列；地点为空的记录归入 "unknown"。
func BuildHeatmap(snap *Snapshot, itemName string, since time.Time) []HeatCell {
	if snap == nil {
		return nil
	}
	want := strings.ToLower(strings.TrimSpace(itemName))

	type acc struct {
		prices []float64
	}
	byLocation := map[string]*acc{}
	order := []string{}

	for _, rec := range snap.Records {
		if want != "" && strings.ToLower(strings.TrimSpace(rec.Name)) != want {
			continue
		}
		if !since.IsZero() && rec.SubmittedAt.Before(since) {
			continue
		}
		if !isFinite(rec.Price) {
			continue
		}
		loc := rec.Location
		if loc == "" {
			loc = "unknown"
		}
		a, ok := byLocation[loc]
		if !ok {
			a = &acc{}
			byLocation[loc] = a
			order = append(order, loc)
		}
		a.prices = append(a.prices, rec.Price)
	}

	cells := make([]HeatCell, 0, len(order))
	counts := make([]float64, 0, len(order))
	invPrices := make([]float64, 0, len(order))

	for _, loc := range order {
		a := byLocation[loc]
		cell := HeatCell{Name: loc, Count: len(a.prices)}
		var sum float64
		for i, p := range a.prices {
			sum += p
			if i == 0 || p < cell.MinPrice {
				cell.MinPrice = p
			}
			if i == 0 || p > cell.MaxPrice {
				cell.MaxPrice = p
			}
		}
		cell.AvgPrice = sum / float64(len(a.prices))
		cells = append(cells, cell)

		counts = append(counts, float64(cell.Count))
		invPrices = append(invPrices, 1.0/(cell.AvgPrice+1e-6))
	}

	normCounts := normalize(counts)
	normInv := normalize(invPrices)
	for i := range cells {
		cells[i].Intensity = 0.7*normCounts[i] + 0.3*normInv[i]
	}

	sort.SliceStable(cells, func(i, j int) bool {
		return cells[i].Intensity > cells[j].Intensity
	})
	return cells
}

// normalize 将数值缩放到 [0,1]；所有值相等时全部取 1。
func normalize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mn, mx := values[0], values[0]
	for _, v := range values {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	out := make([]float64, len(values))
	if mx == mn {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, v := range values {
		out[i] = (v - mn) / (mx - mn)
	}
	return out
}
