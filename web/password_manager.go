package web

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashToken 生成控制面访问令牌的 bcrypt 哈希，写入 hub.token_hash
func HashToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("令牌不能为空")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("生成令牌哈希失败: %w", err)
	}
	return string(hash), nil
}

// VerifyToken 校验令牌与哈希是否匹配
func VerifyToken(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
