package model

import (
	"time"
)

// 价格记录状态。
const (
	StatusPending  = "pending"  // 待审核
	StatusApproved = "approved" // 已通过
	StatusRejected = "rejected" // 已拒绝
)

// Category 表示商品分类（如 EDIBLES / DRINKS / NON-EDIBLES）。
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`                              // 分类唯一标识
	Name        string `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"` // 分类名（唯一）
	Icon        string `gorm:"type:varchar(16)" json:"icon,omitempty"`            // emoji 图标
	Description string `json:"description,omitempty"`                             // 分类描述

	Prices []PriceRecord `gorm:"foreignKey:CategoryID" json:"-"` // 关联的价格记录
}

// PriceRecord 表示一条用户提交的观测价格。
//
// 记录一旦进入快照即视为不可变：刷新时整体替换，不做逐字段更新。
// Price 必须为有限正数（rejected 状态除外），校验在提交入口完成。
type PriceRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"` // 记录唯一标识
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	CategoryID uint   `gorm:"not null;index" json:"category_id"`             // 所属分类 ID
	Name       string `gorm:"type:varchar(191);not null;index" json:"name"`  // 商品名（如 "Rice"）
	Brand      string `gorm:"type:varchar(191)" json:"brand,omitempty"`      // 品牌（可选）
	PackSize   string `gorm:"type:varchar(32)" json:"pack_size,omitempty"`   // 规格数值（如 "500"）
	PackUnit   string `gorm:"type:varchar(16)" json:"pack_unit,omitempty"`   // 规格单位（g/kg/ml/L/pcs/pack）

	Price        float64 `gorm:"not null" json:"price"`    // 价格（₦）
	PricePerUnit float64 `json:"price_per_unit,omitempty"` // 单位价格（用于比价，可选）

	Retailer    string    `gorm:"type:varchar(191)" json:"retailer,omitempty"` // 商家名称
	Location    string    `gorm:"type:varchar(191)" json:"location,omitempty"` // 地点/区域
	StoreID     *uint     `json:"store_id,omitempty"`                          // 关联店铺（可选）
	SubmittedBy *uint     `json:"submitted_by,omitempty"`                      // 提交用户 ID
	SubmittedAt time.Time `json:"submitted_at"`                                // 提交时间

	Status string `gorm:"type:varchar(16);default:pending;index" json:"status"` // pending / approved / rejected
}

// Store 表示地图上可选取的店铺位置。
type Store struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(191);not null" json:"name"`
	Address   string    `json:"address,omitempty"`
	Lat       *float64  `json:"lat,omitempty"` // 纬度（未定位时为空）
	Lng       *float64  `json:"lng,omitempty"` // 经度
	CreatedBy *uint     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction 记录一次余额变动（如审核通过后的返现奖励）。
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Amount    float64   `gorm:"not null" json:"amount"` // 变动金额（₦）
	Reason    string    `json:"reason,omitempty"`       // 变动原因
	CreatedAt time.Time `json:"created_at"`
}
