package store

import (
	"context"
	"errors"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// TaskStore 任务记录的持久化访问。
//
// 所有方法都以 ownerID 过滤：同一个 404 既覆盖 "不存在"
// 也覆盖 "存在但不属于调用方"。
type TaskStore struct {
	db *gorm.DB
}

// NewTaskStore 创建 TaskStore。
func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

// ListByOwner 返回用户的全部任务，新建在前。
func (s *TaskStore) ListByOwner(ctx context.Context, ownerID uint) ([]model.Task, error) {
	tasks := []model.Task{} // 保证序列化为 [] 而不是 null
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create 创建任务。调用方必须已将 UserID 置为当前用户。
func (s *TaskStore) Create(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

// GetByID 返回用户名下的单个任务。
func (s *TaskStore) GetByID(ctx context.Context, ownerID, id uint) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

// Update 对用户名下的任务做部分更新，返回更新后的记录。
// updates 不允许触碰 user_id，归属在创建后不可变。
func (s *TaskStore) Update(ctx context.Context, ownerID, id uint, updates map[string]interface{}) (*model.Task, error) {
	delete(updates, "user_id")

	// 先确认归属；无值变化的 UPDATE 在 MySQL 下 RowsAffected 为 0，
	// 不能用它区分 "不存在" 与 "无变化"。
	if _, err := s.GetByID(ctx, ownerID, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, ownerID, id)
}

// Delete 删除用户名下的任务。
func (s *TaskStore) Delete(ctx context.Context, ownerID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
