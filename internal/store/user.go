package store

import (
	"context"
	"errors"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// UserStore 用户记录的持久化访问。
type UserStore struct {
	db *gorm.DB
}

// NewUserStore 创建 UserStore。
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByEmail 按邮箱查找用户。查无返回 ErrUserNotFound。
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByID 按 ID 查找用户。查无返回 ErrUserNotFound。
func (s *UserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户。邮箱冲突（包括并发注册时晚到的唯一键冲突）返回 ErrDuplicateEmail。
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// UpdateProfile 更新用户名与邮箱。新邮箱被他人占用时返回 ErrDuplicateEmail。
func (s *UserStore) UpdateProfile(ctx context.Context, id uint, username, email string) (*model.User, error) {
	updates := map[string]interface{}{
		"username": username,
		"email":    email,
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isDuplicateKeyErr(res.Error) {
			return nil, ErrDuplicateEmail
		}
		return nil, res.Error
	}
	return s.FindByID(ctx, id)
}

// UpdatePassword 更新密码哈希。
func (s *UserStore) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
