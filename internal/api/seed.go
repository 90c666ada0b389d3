package api

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/xonn9/Unilag-Price-saver/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedData 初始化默认分类与引导管理员账户。
//
// 分类按名称幂等插入；管理员仅在 ADMIN_EMAIL / ADMIN_PASSWORD
// 环境变量同时设置且账户不存在时创建。
func (s *Server) SeedData(ctx context.Context) error {
	defaults := []model.Category{
		{Name: "EDIBLES", Icon: "🍚", Description: "Food staples and groceries"},
		{Name: "DRINKS", Icon: "🥤", Description: "Beverages, water and juices"},
		{Name: "NON-EDIBLES", Icon: "🧻", Description: "Toiletries, stationery and household items"},
	}

	for _, category := range defaults {
		var existing model.Category
		err := s.db.WithContext(ctx).Where("name = ?", category.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
			return err
		}
		s.logger.Info("seeded category", slog.String("name", category.Name))
	}

	return s.seedAdmin(ctx)
}

func (s *Server) seedAdmin(ctx context.Context) error {
	email := strings.TrimSpace(strings.ToLower(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	var existing model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != "admin" {
			if err := s.db.WithContext(ctx).Model(&model.User{}).
				Where("id = ?", existing.ID).
				Update("role", "admin").Error; err != nil {
				return err
			}
			s.logger.Info("promoted existing user to admin", slog.String("email", email))
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := model.User{
		Email:      email,
		Password:   string(hash),
		Role:       "admin",
		IsVerified: true,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	s.logger.Info("seeded admin account", slog.String("email", email))
	return nil
}
