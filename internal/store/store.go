// Package store 提供基于 GORM/MySQL 的持久化访问。
//
// 邮箱唯一性依赖数据库唯一索引兜底：并发注册同一邮箱时，
// "先查后建" 并不原子，晚到的写入会收到唯一键冲突，
// 这里统一翻译为 ErrDuplicateEmail。
package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateEmail 邮箱已被占用。
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrUserNotFound 用户不存在。
	ErrUserNotFound = errors.New("user not found")

	// ErrTaskNotFound 任务不存在，或不属于调用方。
	// 两种情况刻意不区分，避免向非属主泄露任务存在性。
	ErrTaskNotFound = errors.New("task not found")
)

const mysqlDuplicateEntry = 1062

// isDuplicateKeyErr 判断是否为唯一键冲突。
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
