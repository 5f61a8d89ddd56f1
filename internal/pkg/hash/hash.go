// Package hash 封装密码的单向加盐哈希与校验。
package hash

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyHash 是一个合法的 bcrypt 哈希，用于在用户不存在时做等时比较，
// 避免通过响应耗时探测邮箱是否注册。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher 基于 bcrypt 的密码哈希器。
type Hasher struct {
	cost int
}

// NewHasher 创建 Hasher。cost 超出 bcrypt 合法范围时回退到默认工作因子。
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash 生成明文密码的加盐哈希。
func (h Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify 校验明文密码与哈希是否匹配。
// 任何错误（损坏的哈希、超长输入等）一律视为不匹配。
func (h Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// VerifyDummy 对固定哈希做一次比较，结果恒为不匹配。
// 用于在查无此用户时保持登录路径的耗时一致。
func (h Hasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plaintext))
}
