package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobnest/internal/account"
)

// UserHandler 负责个人资料的读取与修改。
type UserHandler struct {
	accounts *account.Store
}

// NewUserHandler 构造 UserHandler。
func NewUserHandler(accounts *account.Store) *UserHandler {
	return &UserHandler{accounts: accounts}
}

type updateProfileRequest struct {
	Name     *string   `json:"name" binding:"omitempty,max=100"`
	Location *string   `json:"location" binding:"omitempty,max=255"`
	Bio      *string   `json:"bio" binding:"omitempty,max=2000"`
	Skills   skillList `json:"skills"`
	Company  *string   `json:"company" binding:"omitempty,max=255"`
	Website  *string   `json:"website" binding:"omitempty,max=500"`
}

// GetMe 返回当前用户资料。
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	user, err := h.accounts.FindByID(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.NewProfile(*user))
}

// UpdateMe 修改当前用户资料，字段随角色生效。
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), userID, account.ProfileUpdate{
		Name:     req.Name,
		Location: req.Location,
		Bio:      req.Bio,
		Skills:   req.Skills,
		Company:  req.Company,
		Website:  req.Website,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.NewProfile(*user))
}

// GetUser 返回指定用户的公开资料（聊天窗口头部使用）。
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.accounts.FindByID(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, account.NewProfile(*user))
}
