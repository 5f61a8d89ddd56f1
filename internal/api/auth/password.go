package auth

import (
	"errors"
	"strings"
	"unicode"
)

const specialChars = "!@#$%^&*"

// ValidatePassword 校验密码强度：长度 ≥ 8，且包含小写、大写、数字
// 和 !@#$%^&* 中的至少一个特殊字符。
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasLower:
		return errors.New("password must contain a lowercase letter")
	case !hasUpper:
		return errors.New("password must contain an uppercase letter")
	case !hasDigit:
		return errors.New("password must contain a digit")
	case !hasSpecial:
		return errors.New("password must contain one of " + specialChars)
	}
	return nil
}
