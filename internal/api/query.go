package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/engine"

	"github.com/gin-gonic/gin"
)

// handleStats 返回当前快照的聚合统计。
//
// GET /stats
func (s *Server) handleStats(c *gin.Context) {
	snap := s.store.Snapshot()
	summary := engine.Aggregate(snap)

	perCategory := make(map[string]engine.Stats, len(summary.PerCategory))
	for catID, stats := range summary.PerCategory {
		perCategory[snap.CategoryName(catID)] = stats
	}

	c.JSON(http.StatusOK, gin.H{
		"total":              summary.Total,
		"per_category":       perCategory,
		"distinct_retailers": summary.DistinctRetailers,
		"distinct_locations": summary.DistinctLocations,
		"loaded_at":          snap.LoadedAt,
	})
}

// searchResultItem 搜索接口返回的单条结果。
type searchResultItem struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price"`
	Retailer string  `json:"retailer,omitempty"`
	Location string  `json:"location,omitempty"`
	Category string  `json:"category"`
}

// handleSearch 在快照上执行子串搜索。
//
// GET /search?q=rice
//
// 空查询返回完整快照计数但结果仍受展示上限约束。
func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	snap := s.store.Snapshot()

	matched := engine.Search(snap, query)
	top := matched
	if len(top) > engine.SearchDisplayLimit {
		top = top[:engine.SearchDisplayLimit]
	}

	results := make([]searchResultItem, 0, len(top))
	for _, rec := range top {
		results = append(results, searchResultItem{
			ID:       rec.ID,
			Name:     rec.Name,
			Brand:    rec.Brand,
			Price:    rec.Price,
			Retailer: rec.Retailer,
			Location: rec.Location,
			Category: snap.CategoryName(rec.CategoryID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"total":   len(matched),
		"limit":   engine.SearchDisplayLimit,
	})
}

// handleCompare 返回某个商品的所有报价与最低价。
//
// GET /compare/:item
func (s *Server) handleCompare(c *gin.Context) {
	item := strings.TrimSpace(c.Param("item"))
	if item == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item"})
		return
	}

	snap := s.store.Snapshot()
	cheapest := engine.CheapestPrice(snap, item)

	offers := make([]searchResultItem, 0)
	needle := strings.ToLower(item)
	for _, rec := range snap.Records {
		if strings.ToLower(strings.TrimSpace(rec.Name)) != needle {
			continue
		}
		offers = append(offers, searchResultItem{
			ID:       rec.ID,
			Name:     rec.Name,
			Brand:    rec.Brand,
			Price:    rec.Price,
			Retailer: rec.Retailer,
			Location: rec.Location,
			Category: snap.CategoryName(rec.CategoryID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"item":           item,
		"cheapest_price": cheapest,
		"offers":         offers,
	})
}

// handleSavings 计算相对最低价的节省金额与比例。
//
// GET /savings?item=rice&price=500
func (s *Server) handleSavings(c *gin.Context) {
	item := strings.TrimSpace(c.Query("item"))
	if item == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item"})
		return
	}
	current, err := strconv.ParseFloat(c.Query("price"), 64)
	if err != nil || current <= 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}

	snap := s.store.Snapshot()
	cheapest := engine.CheapestPrice(snap, item)
	if cheapest == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price data for item"})
		return
	}

	c.JSON(http.StatusOK, engine.Savings(current, cheapest))
}

// handleHeatmap 返回按地点聚合的价格热力图。
//
// GET /heatmap?item=rice
func (s *Server) handleHeatmap(c *gin.Context) {
	item := strings.TrimSpace(c.Query("item"))
	if item == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item"})
		return
	}

	days := s.cfg.App.HeatmapWindowDays
	if override := parseQueryInt(c, "days", 0); override > 0 && override <= 365 {
		days = override
	}
	since := time.Now().AddDate(0, 0, -days)

	snap := s.store.Snapshot()
	cells := engine.BuildHeatmap(snap, item, since)

	c.JSON(http.StatusOK, gin.H{
		"item":        item,
		"window_days": days,
		"cells":       cells,
	})
}
