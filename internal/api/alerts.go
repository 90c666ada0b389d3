package api

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/engine"

	"github.com/gin-gonic/gin"
)

// handleListAlerts 返回当前用户的全部告警规则。
func (s *Server) handleListAlerts(c *gin.Context) {
	userID := getUserID(c)

	rules, err := s.alerts.Load(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("load alert rules failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load alerts failed"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

type createAlertRequest struct {
	ItemName  string  `json:"item_name" binding:"required"`
	Threshold float64 `json:"threshold" binding:"required"`
}

// handleCreateAlert 新建一条告警规则。
//
// 规则 ID 取创建时刻的毫秒时间戳；同一毫秒内的并发创建顺延一毫秒。
func (s *Server) handleCreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.ItemName)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item name"})
		return
	}
	if req.Threshold <= 0 || math.IsNaN(req.Threshold) || math.IsInf(req.Threshold, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
		return
	}
	userID := getUserID(c)

	rules, err := s.alerts.Load(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("load alert rules failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load alerts failed"})
		return
	}

	rule := engine.NewAlertRule(name, req.Threshold, time.Now())
	for hasRuleID(rules, rule.ID) {
		rule.ID++
	}
	rules = append(rules, rule)

	if err := s.alerts.Save(c.Request.Context(), userID, rules); err != nil {
		s.logger.Error("save alert rules failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save alerts failed"})
		return
	}

	s.logger.Info("alert rule created",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("item", rule.ItemName),
		slog.Float64("threshold", rule.Threshold))
	c.JSON(http.StatusCreated, rule)
}

// handleDeleteAlert 删除指定 ID 的告警规则。
func (s *Server) handleDeleteAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	userID := getUserID(c)

	rules, err := s.alerts.Load(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("load alert rules failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load alerts failed"})
		return
	}

	kept := rules[:0]
	found := false
	for _, rule := range rules {
		if rule.ID == id {
			found = true
			continue
		}
		kept = append(kept, rule)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	if err := s.alerts.Save(c.Request.Context(), userID, kept); err != nil {
		s.logger.Error("save alert rules failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save alerts failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleClearAlerts 清空当前用户的全部告警规则。
func (s *Server) handleClearAlerts(c *gin.Context) {
	userID := getUserID(c)

	if err := s.alerts.Delete(c.Request.Context(), userID); err != nil {
		s.logger.Error("clear alert rules failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clear alerts failed"})
		return
	}

	s.logger.Info("alert rules cleared", slog.Uint64("user_id", uint64(userID)))
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func hasRuleID(rules []engine.AlertRule, id int64) bool {
	for _, r := range rules {
		if r.ID == id {
			return true
		}
	}
	return false
}
