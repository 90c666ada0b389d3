package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xonn9/Unilag-Price-saver/internal/api/scheduler"
	"github.com/xonn9/Unilag-Price-saver/internal/engine"
	"github.com/xonn9/Unilag-Price-saver/internal/model"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/dedup"
	"github.com/xonn9/Unilag-Price-saver/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// handleListCategories 返回全部分类。
func (s *Server) handleListCategories(c *gin.Context) {
	categories := []model.Category{} // Initialize as empty slice to ensure JSON is [] not null
	if err := s.db.Order("id ASC").Find(&categories).Error; err != nil {
		s.logger.Error("list categories failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list categories failed"})
		return
	}
	c.JSON(http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// handleCreateCategory 新建分类（管理员）。
func (s *Server) handleCreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := model.Category{
		Name:        strings.TrimSpace(req.Name),
		Icon:        req.Icon,
		Description: req.Description,
	}
	if err := s.db.Create(&category).Error; err != nil {
		s.logger.Error("create category failed", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": "create category failed"})
		return
	}

	c.JSON(http.StatusCreated, category)
}

// handleListPrices 返回当前快照中的价格记录。
//
// 支持查询参数 category_id / min_price / max_price / retailer / location，
// 过滤在内存快照上执行，不触发数据库查询。
func (s *Server) handleListPrices(c *gin.Context) {
	snap := s.store.Snapshot()

	criteria := engine.FilterCriteria{
		CategoryID:        uint(parseQueryInt(c, "category_id", 0)),
		RetailerSubstring: c.Query("retailer"),
		LocationSubstring: c.Query("location"),
	}
	if v := c.Query("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			criteria.MinPrice = f
		}
	}
	if v := c.Query("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			criteria.MaxPrice = f
		}
	}

	records := engine.Apply(snap, criteria)
	c.JSON(http.StatusOK, gin.H{
		"prices":    records,
		"count":     len(records),
		"loaded_at": snap.LoadedAt,
	})
}

// handleListPricesByCategory 返回指定分类下的快照记录。
func (s *Server) handleListPricesByCategory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
		return
	}

	snap := s.store.Snapshot()
	records := engine.Apply(snap, engine.FilterCriteria{CategoryID: uint(id)})
	c.JSON(http.StatusOK, gin.H{
		"category": snap.CategoryName(uint(id)),
		"prices":   records,
		"count":    len(records),
	})
}

// submitPriceRequest 提交价格的请求参数。
type submitPriceRequest struct {
	CategoryID   uint    `json:"category_id" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Brand        string  `json:"brand"`
	PackSize     string  `json:"pack_size"`
	PackUnit     string  `json:"pack_unit"`
	Price        float64 `json:"price" binding:"required"`
	PricePerUnit float64 `json:"price_per_unit"`
	Retailer     string  `json:"retailer"`
	Location     string  `json:"location"`
	StoreID      *uint   `json:"store_id"`
}

type submitPriceResponse struct {
	ID     uint   `json:"id"`
	Status string `json:"status"`
}

// handleSubmitPrice 处理价格提交：限流、去重，然后以 pending 状态入库。
//
// POST /prices
func (s *Server) handleSubmitPrice(c *gin.Context) {
	var req submitPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Price <= 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
		return
	}
	userID := getUserID(c)

	allowed, err := s.limiter.Allow(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("rate limit check failed", slog.String("error", err.Error()))
	} else if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions"})
		return
	}

	sub := dedup.Submission{
		Name:     name,
		Price:    req.Price,
		Retailer: req.Retailer,
		Location: req.Location,
	}
	dup, err := s.deduper.IsDuplicate(c.Request.Context(), sub)
	if err != nil {
		s.logger.Error("dedup check failed", slog.String("error", err.Error()))
	} else if dup {
		s.logger.Info("submission deduplicated", slog.String("name", name))
		metrics.SubmissionDuplicatePreventedTotal.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "skipped_duplicate"})
		return
	}

	record := model.PriceRecord{
		CategoryID:   req.CategoryID,
		Name:         name,
		Brand:        strings.TrimSpace(req.Brand),
		PackSize:     strings.TrimSpace(req.PackSize),
		PackUnit:     strings.TrimSpace(req.PackUnit),
		Price:        req.Price,
		PricePerUnit: req.PricePerUnit,
		Retailer:     strings.TrimSpace(req.Retailer),
		Location:     strings.TrimSpace(req.Location),
		StoreID:      req.StoreID,
		SubmittedBy:  &userID,
		SubmittedAt:  time.Now(),
		Status:       model.StatusPending,
	}

	if err := s.prices.CreatePending(c.Request.Context(), &record); err != nil {
		s.logger.Error("create price submission failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create submission failed"})
		return
	}

	c.JSON(http.StatusCreated, submitPriceResponse{ID: record.ID, Status: record.Status})
}

// handleListPending 返回待审核的提交（管理员）。
func (s *Server) handleListPending(c *gin.Context) {
	limit := parseQueryInt(c, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := parseQueryInt(c, "offset", 0)

	pending := []model.PriceRecord{} // Initialize as empty slice
	if err := s.db.Where("status = ?", model.StatusPending).
		Order("submitted_at ASC").
		Limit(limit).Offset(offset).
		Find(&pending).Error; err != nil {
		s.logger.Error("list pending failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list pending failed"})
		return
	}
	c.JSON(http.StatusOK, pending)
}

// handleApprovePrice 批准一条提交并给提交者返现（管理员）。
//
// 状态流转、余额变动与流水写入在同一个事务内完成；
// 成功后异步触发一次快照刷新。
func (s *Server) handleApprovePrice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	reward := s.cfg.App.RewardAmount
	var record model.PriceRecord

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			return err
		}
		if record.Status != model.StatusPending {
			return errAlreadyReviewed
		}

		if err := tx.Model(&model.PriceRecord{}).
			Where("id = ?", id).
			Update("status", model.StatusApproved).Error; err != nil {
			return err
		}

		if record.SubmittedBy == nil || reward <= 0 {
			return nil
		}
		if err := tx.Model(&model.User{}).
			Where("id = ?", *record.SubmittedBy).
			Update("balance", gorm.Expr("balance + ?", reward)).Error; err != nil {
			return err
		}
		return tx.Create(&model.Transaction{
			UserID: *record.SubmittedBy,
			Amount: reward,
			Reason: "price submission approved",
		}).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
			return
		}
		if errors.Is(txErr, errAlreadyReviewed) {
			c.JSON(http.StatusConflict, gin.H{"error": "record already reviewed"})
			return
		}
		s.logger.Error("approve price failed", slog.String("error", txErr.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approve failed"})
		return
	}

	s.logger.Info("price approved",
		slog.Uint64("record_id", id),
		slog.String("name", record.Name),
		slog.Float64("reward", reward))

	// 批准后的记录应尽快进入快照；批量审核时合并为一次刷新
	s.refreshDebounce.Trigger(func() {
		if err := s.refresher.Refresh(context.Background()); err != nil && !errors.Is(err, scheduler.ErrRefreshInFlight) {
			s.logger.Warn("post-approve refresh failed", slog.String("error", err.Error()))
		}
	})

	c.JSON(http.StatusOK, gin.H{"status": model.StatusApproved, "reward": reward})
}

var errAlreadyReviewed = errors.New("record already reviewed")

// handleRejectPrice 驳回一条提交并释放其去重指纹（管理员）。
func (s *Server) handleRejectPrice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	var record model.PriceRecord
	if err := s.db.Where("id = ?", id).First(&record).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if record.Status != model.StatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": "record already reviewed"})
		return
	}

	if err := s.db.Model(&model.PriceRecord{}).
		Where("id = ?", id).
		Update("status", model.StatusRejected).Error; err != nil {
		s.logger.Error("reject price failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reject failed"})
		return
	}

	// 允许同样的内容被重新提交
	sub := dedup.Submission{
		Name:     record.Name,
		Price:    record.Price,
		Retailer: record.Retailer,
		Location: record.Location,
	}
	if err := s.deduper.Forget(c.Request.Context(), sub); err != nil {
		s.logger.Warn("dedup forget failed", slog.String("error", err.Error()))
	}

	s.logger.Info("price rejected", slog.Uint64("record_id", id), slog.String("name", record.Name))
	c.JSON(http.StatusOK, gin.H{"status": model.StatusRejected})
}
