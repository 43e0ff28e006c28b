// Package account 负责账号的注册、口令校验与个人资料。
package account

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"jobnest/internal/database"
	"jobnest/internal/errcode"
)

// Hasher 负责密码哈希与校验。
type Hasher interface {
	HashPassword(password string) (string, error)
	CheckPasswordHash(password, hash string) bool
}

// Store 读写用户记录。
type Store struct {
	db     *gorm.DB
	hasher Hasher
}

// NewStore 构造账号存储。
func NewStore(db *gorm.DB, hasher Hasher) *Store {
	return &Store{db: db, hasher: hasher}
}

// Registration 为注册时接受的字段。
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     database.Role
	Company  string
	Website  string
	Skills   []string
	Location string
	Bio      string
}

// ProfileUpdate 为可选的资料字段，nil 表示不变。
type ProfileUpdate struct {
	Name     *string
	Location *string
	Bio      *string
	Skills   []string
	Company  *string
	Website  *string
}

// Register 创建用户，只保留与角色相符的字段。
func (s *Store) Register(ctx context.Context, reg Registration) (*database.User, error) {
	email := normalizeEmail(reg.Email)
	if !reg.Role.Valid() || reg.Role == database.RoleAdmin {
		return nil, errcode.Validation("role must be seeker or recruiter")
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return nil, errcode.Conflict("user already exists", nil)
	} else if !errcode.Is(err, errcode.CodeNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.HashPassword(reg.Password)
	if err != nil {
		return nil, errcode.Internal("hash password", err)
	}

	user := database.User{
		Name:         strings.TrimSpace(reg.Name),
		Email:        email,
		PasswordHash: hashed,
		Role:         reg.Role,
		Location:     strings.TrimSpace(reg.Location),
		Bio:          strings.TrimSpace(reg.Bio),
		Skills:       datatypes.JSONSlice[string]{},
	}
	switch reg.Role {
	case database.RoleRecruiter:
		user.Company = optional(reg.Company)
		user.Website = optional(reg.Website)
	case database.RoleSeeker:
		user.Skills = datatypes.JSONSlice[string](cleanSkills(reg.Skills))
	}

	return s.create(ctx, &user)
}

// CreateAdmin 以已哈希的密码插入管理员。
func (s *Store) CreateAdmin(ctx context.Context, name, email, passwordHash string) (*database.User, error) {
	user := database.User{
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         database.RoleAdmin,
		Skills:       datatypes.JSONSlice[string]{},
	}
	return s.create(ctx, &user)
}

func (s *Store) create(ctx context.Context, user *database.User) (*database.User, error) {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errcode.Conflict("user already exists", err)
		}
		return nil, errcode.Internal("create user", err)
	}
	return user, nil
}

// FindByID 按主键读取用户。
func (s *Store) FindByID(ctx context.Context, id uint) (*database.User, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("user not found")
		}
		return nil, errcode.Internal("query user", err)
	}
	return &user, nil
}

// FindByEmail 按邮箱读取用户，不区分大小写。
func (s *Store) FindByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("user not found")
		}
		return nil, errcode.Internal("query user", err)
	}
	return &user, nil
}

// ErrInvalidCredentials 表示邮箱不存在或密码错误。
var ErrInvalidCredentials = errors.New("invalid credentials")

// VerifyCredentials 密码匹配时返回用户。
func (s *Store) VerifyCredentials(ctx context.Context, email, password string) (*database.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errcode.Is(err, errcode.CodeNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateProfile 写入非 nil 字段。skills 仅对求职者生效，company 与 website 仅对招聘方生效。
func (s *Store) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*database.User, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		values["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Location != nil {
		values["location"] = strings.TrimSpace(*update.Location)
	}
	if update.Bio != nil {
		values["bio"] = strings.TrimSpace(*update.Bio)
	}
	switch user.Role {
	case database.RoleSeeker:
		if update.Skills != nil {
			values["skills"] = datatypes.JSONSlice[string](cleanSkills(update.Skills))
		}
	case database.RoleRecruiter:
		if update.Company != nil {
			values["company"] = optional(*update.Company)
		}
		if update.Website != nil {
			values["website"] = optional(*update.Website)
		}
	}

	if len(values) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(values).Error; err != nil {
			return nil, errcode.Internal("update profile", err)
		}
	}
	return s.FindByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// cleanSkills 去除首尾空白并丢弃空项，单个逗号分隔的字符串会被拆开。
func cleanSkills(skills []string) []string {
	if len(skills) == 1 && strings.Contains(skills[0], ",") {
		skills = strings.Split(skills[0], ",")
	}
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		if trimmed := strings.TrimSpace(skill); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Profile 为不含凭据的用户信息。
type Profile struct {
	ID       uint          `json:"id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Role     database.Role `json:"role"`
	Avatar   string        `json:"avatar"`
	Location string        `json:"location"`
	Bio      string        `json:"bio"`
	Skills   []string      `json:"skills"`
	Company  *string       `json:"company"`
	Website  *string       `json:"website"`
}

// NewProfile 去掉 u 的密码哈希。
func NewProfile(u database.User) Profile {
	skills := []string(u.Skills)
	if skills == nil {
		skills = []string{}
	}
	return Profile{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Avatar:   u.Avatar,
		Location: u.Location,
		Bio:      u.Bio,
		Skills:   skills,
		Company:  u.Company,
		Website:  u.Website,
	}
}
