package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/housedesk-backend/internal/http/response"
	"github.com/yungbote/housedesk-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/auth/telegram
// body: { "init_data": "<Telegram WebApp initData>" }
func (ah *AuthHandler) Telegram(c *gin.Context) {
	var req struct {
		InitData string `json:"init_data" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := ah.authService.LoginTelegram(c.Request.Context(), req.InitData)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tokens)
}

// POST /api/auth/demo (debug builds only)
func (ah *AuthHandler) Demo(c *gin.Context) {
	var req struct {
		TelegramID int64 `json:"telegram_id"`
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	tokens, err := ah.authService.LoginDemo(c.Request.Context(), req.TelegramID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tokens)
}

// POST /api/auth/admin-login
func (ah *AuthHandler) AdminLogin(c *gin.Context) {
	var req struct {
		TelegramID int64  `json:"telegram_id" binding:"required"`
		Password   string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := ah.authService.LoginAdmin(c.Request.Context(), req.TelegramID, req.Password)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tokens)
}

// POST /api/auth/refresh
func (ah *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !bindJSON(c, &req) {
		return
	}
	tokens, err := ah.authService.RefreshUser(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, tokens)
}

// POST /api/auth/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.LogoutUser(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
