// Package authtest 使用临时 RSA 密钥构造 AuthService，供测试使用。
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"jobnest/internal/auth"
)

// GeneratePEM 生成新的 PKCS#1 私钥与 PKIX 公钥。
func GeneratePEM(t *testing.T) (privatePEM, publicPEM []byte) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privatePEM, publicPEM
}

// NewService 返回访问令牌 15 分钟、刷新令牌 24 小时有效的 AuthService。
func NewService(t *testing.T) *auth.AuthService {
	t.Helper()

	privatePEM, publicPEM := GeneratePEM(t)
	svc, err := auth.NewAuthService(privatePEM, publicPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}
