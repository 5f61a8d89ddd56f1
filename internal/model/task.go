package model

import "time"

// Priority 任务优先级。
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid 判断优先级是否为合法枚举值。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task 表示一条待办事项。
//
// 每条任务恰好属于一个用户（UserID），创建后归属不可变更；
// 所有读写都必须按归属过滤。
type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"` // 任务唯一标识
	CreatedAt time.Time `json:"created_at"`           // 创建时间
	UpdatedAt time.Time `json:"updated_at"`           // 更新时间

	UserID uint `gorm:"not null;index" json:"owner"` // 所属用户 ID
	User   User `gorm:"foreignKey:UserID" json:"-"`  // 所属用户

	Title       string     `gorm:"not null" json:"title"`                         // 标题
	Description string     `gorm:"type:text" json:"description"`                  // 描述
	Priority    Priority   `gorm:"type:varchar(8);default:Low" json:"priority"`   // 优先级: Low / Medium / High
	DueDate     *time.Time `json:"dueDate,omitempty"`                             // 截止日期（可空）
	Completed   bool       `gorm:"default:false" json:"completed"`                // 是否完成
}
