// Package dbtest 为各包测试提供已迁移的内存 sqlite 数据库。
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jobnest/internal/database"
)

// Open 返回当前测试独占的已迁移数据库。
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	// 单连接保证内存库在测试期间存活，且事务不会与其他连接争锁。
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser 插入指定角色的用户并返回。
func CreateUser(t *testing.T, db *gorm.DB, name string, role database.Role) database.User {
	t.Helper()

	user := database.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

// CreateJob 插入 recruiterID 名下的在招职位。
func CreateJob(t *testing.T, db *gorm.DB, recruiterID uint, title string) database.Job {
	t.Helper()

	job := database.Job{
		Title:       title,
		Description: "A role building backend services.",
		Company:     "Acme",
		RecruiterID: recruiterID,
		Location:    "Berlin",
		Type:        database.JobTypeFullTime,
		SalaryMin:   50000,
		SalaryMax:   70000,
		IsActive:    true,
	}
	if err := db.Omit("Recruiter").Create(&job).Error; err != nil {
		t.Fatalf("create job %s: %v", title, err)
	}
	return job
}
