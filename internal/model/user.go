package model

import "time"

// User 表示一个注册账户。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                             // 用户 ID
	Username  string    `gorm:"type:varchar(64);not null" json:"username"`        // 用户名
	Email     string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"` // 邮箱（唯一）
	Password  string    `gorm:"not null" json:"-"`                                // bcrypt 哈希，永不下发
	CreatedAt time.Time `json:"created_at"`                                       // 创建时间

	Tasks []Task `gorm:"foreignKey:UserID" json:"-"`
}

// Sanitized 返回去除密码哈希的副本，用于塞入请求上下文或响应。
func (u User) Sanitized() User {
	u.Password = ""
	return u
}
