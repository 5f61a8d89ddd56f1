package api

import (
	"context"
	"errors"
	"time"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// SeedDemoData 在本地环境初始化演示账户与示例任务。生产环境为空操作。
func (s *Server) SeedDemoData(ctx context.Context) error {
	if s.cfg.IsProd() {
		return nil
	}

	const demoEmail = "demo@taskhub.local"
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		passwordHash, hashErr := s.hasher.Hash("Demo1234!")
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			Username: "demo",
			Email:    demoEmail,
			Password: passwordHash,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}

	var taskCount int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ?", user.ID).
		Count(&taskCount).Error; err != nil {
		return err
	}
	if taskCount > 0 {
		return nil
	}

	due := time.Now().Add(72 * time.Hour)
	samples := []model.Task{
		{UserID: user.ID, Title: "Try out taskhub", Description: "Sign in with demo@taskhub.local / Demo1234!", Priority: model.PriorityHigh, DueDate: &due},
		{UserID: user.ID, Title: "Create your first task", Priority: model.PriorityLow},
	}
	return s.db.WithContext(ctx).Create(&samples).Error
}
