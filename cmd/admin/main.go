package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"jobnest/internal/account"
	"jobnest/internal/auth"
	"jobnest/internal/config"
	"jobnest/internal/database"
	"jobnest/internal/errcode"
)

// bcryptHasher 让账号存储复用 auth 包的 bcrypt 实现。
type bcryptHasher struct{}

func (bcryptHasher) HashPassword(password string) (string, error) { return auth.HashPassword(password) }
func (bcryptHasher) CheckPasswordHash(password, hash string) bool {
	return auth.CheckPasswordHash(password, hash)
}

func main() {
	var (
		email   = flag.String("email", "", "初始管理员邮箱（必填）")
		name    = flag.String("name", "Administrator", "管理员显示名称")
		dbHost  = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort  = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName  = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser  = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass  = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	adminEmail := strings.TrimSpace(*email)
	if adminEmail == "" {
		log.Fatal("missing required flag: --email")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	ctx := context.Background()
	accounts := account.NewStore(db, bcryptHasher{})

	switch _, err := accounts.FindByEmail(ctx, adminEmail); {
	case err == nil:
		log.Fatalf("user %q already exists", adminEmail)
	case errcode.Is(err, errcode.CodeNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user, err := accounts.CreateAdmin(ctx, *name, adminEmail, hashed)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}

	fmt.Printf("已创建管理员账号（ID %d）：\n", user.ID)
	fmt.Printf("邮箱: %s\n", user.Email)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：该密码仅显示一次，请妥善保存。\n")
}

// loadDatabaseConfig 以命令行参数优先，其次读取与 API 相同的环境变量。
func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Host:     firstNonEmpty(host, os.Getenv("DATABASE_HOST"), "localhost"),
		Port:     port,
		Name:     firstNonEmpty(name, os.Getenv("POSTGRES_DB")),
		User:     firstNonEmpty(user, os.Getenv("POSTGRES_USER")),
		Password: firstNonEmpty(password, os.Getenv("POSTGRES_PASSWORD")),
		SSLMode:  firstNonEmpty(sslmode, os.Getenv("DATABASE_SSLMODE"), "disable"),
	}
	if cfg.Port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			cfg.Port = p
		} else {
			cfg.Port = 5432
		}
	}

	switch {
	case cfg.Name == "":
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	case cfg.User == "":
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	case cfg.Password == "":
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
