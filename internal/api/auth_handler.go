package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"jobnest/internal/account"
	"jobnest/internal/api/middleware"
	"jobnest/internal/auth"
	"jobnest/internal/database"
	"jobnest/internal/errcode"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// TokenIssuer 签发并校验令牌对。
type TokenIssuer interface {
	GenerateTokenPair(userID uint, role string) (auth.TokenPair, error)
	ValidateToken(tokenString string) (*auth.TokenClaims, error)
	AccessTokenTTL() time.Duration
	RefreshTokenTTL() time.Duration
}

// AuthLimits 为登录限流与锁定配置。
type AuthLimits struct {
	LoginRateLimitPerHour int
	LoginLockThreshold    int
	LoginLockTTL          time.Duration
	CookieDomain          string
}

// AuthHandler 处理注册、登录、刷新与退出。
type AuthHandler struct {
	accounts *account.Store
	tokens   TokenIssuer
	redis    authRedis
	logger   *slog.Logger
	limits   AuthLimits
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(accounts *account.Store, tokens TokenIssuer, redisClient authRedis, logger *slog.Logger, limits AuthLimits) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		redis:    redisClient,
		logger:   logger,
		limits:   limits,
	}
}

// skillList 接受 JSON 数组或逗号分隔的字符串。
type skillList []string

func (s *skillList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = strings.Split(raw, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

type registerRequest struct {
	Name     string    `json:"name" binding:"required,min=2,max=100"`
	Email    string    `json:"email" binding:"required,email,max=255"`
	Password string    `json:"password" binding:"required,min=6,max=72"`
	Role     string    `json:"role" binding:"required,oneof=seeker recruiter"`
	Company  string    `json:"company" binding:"max=255"`
	Website  string    `json:"website" binding:"omitempty,url,max=500"`
	Skills   skillList `json:"skills"`
	Location string    `json:"location" binding:"max=255"`
	Bio      string    `json:"bio" binding:"max=2000"`
}

type authResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"tokenType"`
	ExpiresIn int             `json:"expiresIn"`
	User      account.Profile `json:"user"`
}

// Register 创建账号并直接登录。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := h.loggerFromContext(c).With(slog.String("role", req.Role))

	user, err := h.accounts.Register(c.Request.Context(), account.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     database.Role(req.Role),
		Company:  req.Company,
		Website:  req.Website,
		Skills:   req.Skills,
		Location: req.Location,
		Bio:      req.Bio,
	})
	if err != nil {
		if errcode.Is(err, errcode.CodeConflict) {
			logger.Info("register conflict: user already exists")
		}
		WriteError(c, err)
		return
	}

	tokenPair, err := h.tokens.GenerateTokenPair(user.ID, string(user.Role))
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	h.replyWithTokenPair(c, http.StatusCreated, tokenPair, *user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验口令并返回 Token。
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	logger := h.loggerFromContext(c).With(slog.String("email", email))

	// 速率限制：每 IP+邮箱 每小时 N 次
	rateKey := "rate:login:" + ip + ":" + email + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if h.limits.LoginRateLimitPerHour > 0 && count > int64(h.limits.LoginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	// 锁定检查
	lockKey := "lock:login:" + email
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
		return
	}

	user, err := h.accounts.VerifyCredentials(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			logger.Info("login failed: invalid credentials")
			_ = h.incrementLoginFail(ctx, email)
			BadRequest(c, "Invalid credentials")
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		WriteError(c, err)
		return
	}

	// 登录成功：清理失败计数
	_ = h.redis.Del(ctx, "lock:login:fail:"+email).Err()

	tokenPair, err := h.tokens.GenerateTokenPair(user.ID, string(user.Role))
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair, *user)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh 校验刷新令牌并颁发新的 TokenPair，旧令牌随即作废。
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, ok := h.validateRefreshToken(c, refreshToken)
	if !ok {
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user, err := h.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		logger.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.tokens.GenerateTokenPair(user.ID, string(user.Role))
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, http.StatusOK, tokenPair, *user)
}

// Logout 将刷新令牌加入黑名单，防止继续使用。
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	claims, ok := h.validateRefreshToken(c, refreshToken)
	if !ok {
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(c.Request.Context(), key, claims.ExpiresAt); err != nil {
		h.loggerFromContext(c).Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// 清除 Cookie。
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.limits.CookieDomain),
	})
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) validateRefreshToken(c *gin.Context, token string) (*auth.TokenClaims, bool) {
	logger := h.loggerFromContext(c)

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return nil, false
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		logger.Info("refresh token wrong type", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return nil, false
	}
	if claims.ID == "" {
		logger.Info("refresh token missing jti")
		Unauthorized(c)
		return nil, false
	}
	return claims, true
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, status int, tokenPair auth.TokenPair, user database.User) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(status, authResponse{
		Token:     tokenPair.AccessToken,
		TokenType: "Bearer",
		ExpiresIn: int(h.tokens.AccessTokenTTL().Seconds()),
		User:      account.NewProfile(user),
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	ttl := h.tokens.RefreshTokenTTL()
	maxAge := int(ttl.Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   strings.TrimSpace(h.limits.CookieDomain),
		Expires:  time.Now().Add(ttl),
	})
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.tokens.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, email string) error {
	failKey := "lock:login:fail:" + email
	count, err := incrWithTTL(ctx, h.redis, failKey, h.limits.LoginLockTTL)
	if err != nil {
		return err
	}
	if h.limits.LoginLockThreshold > 0 && count >= int64(h.limits.LoginLockThreshold) {
		return h.redis.Set(ctx, "lock:login:"+email, "1", h.limits.LoginLockTTL).Err()
	}
	return nil
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContextOr(c, h.logger)
}

func isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}
