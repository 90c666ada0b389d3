package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/xonn9/Unilag-Price-saver/internal/model"

	"github.com/gin-gonic/gin"
)

// handleListStores 返回全部店铺位置。
func (s *Server) handleListStores(c *gin.Context) {
	stores := []model.Store{} // Initialize as empty slice
	if err := s.db.Order("id ASC").Find(&stores).Error; err != nil {
		s.logger.Error("list stores failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list stores failed"})
		return
	}
	c.JSON(http.StatusOK, stores)
}

type createStoreRequest struct {
	Name    string   `json:"name" binding:"required"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// handleCreateStore 登记一个店铺位置，供后续提交引用。
//
// 经纬度可选：未定位的店铺先以名称/地址存在，定位后再补。
func (s *Server) handleCreateStore(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Lat != nil && (*req.Lat < -90 || *req.Lat > 90) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude"})
		return
	}
	if req.Lng != nil && (*req.Lng < -180 || *req.Lng > 180) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude"})
		return
	}
	userID := getUserID(c)

	store := model.Store{
		Name:      strings.TrimSpace(req.Name),
		Address:   strings.TrimSpace(req.Address),
		Lat:       req.Lat,
		Lng:       req.Lng,
		CreatedBy: &userID,
	}
	if err := s.db.Create(&store).Error; err != nil {
		s.logger.Error("create store failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create store failed"})
		return
	}

	s.logger.Info("store created", slog.String("name", store.Name))
	c.JSON(http.StatusCreated, store)
}
