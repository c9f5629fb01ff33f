package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"peakmind/internal/app"
	"peakmind/internal/transport/http/response"
)

type AuthHandler struct {
	authService        *app.AuthService
	entitlementService *app.EntitlementService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func NewAuthHandler(authService *app.AuthService, entitlementService *app.EntitlementService) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		entitlementService: entitlementService,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		return
	}

	result, err := h.authService.Register(app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		case errors.Is(err, app.ErrUsernameExists):
			response.Fail(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailExists):
			response.Fail(c, http.StatusBadRequest, err.Error())
		default:
			response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		}
		return
	}

	response.OK(c, authPayload(result))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		return
	}

	result, err := h.authService.Login(app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		case errors.Is(err, app.ErrInvalidCredential):
			response.Fail(c, http.StatusUnauthorized, err.Error())
		default:
			response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		}
		return
	}

	response.OK(c, authPayload(result))
}

// Me returns the profile plus the entitlement flag so the frontend can
// decide whether to show the paywall without probing the chat endpoint.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		return
	}
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
		return
	}

	paid, err := h.entitlementService.IsPaid(c.Request.Context(), userID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		return
	}

	response.OK(c, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"paid":     paid,
	})
}

// GoogleAuth hands the frontend the Google consent URL.
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	url, err := h.authService.GoogleAuthURL(c.Request.Context())
	if err != nil {
		if errors.Is(err, app.ErrOAuthDisabled) {
			response.Fail(c, http.StatusNotFound, err.Error())
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		return
	}
	response.OK(c, gin.H{"url": url})
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	result, err := h.authService.GoogleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrOAuthDisabled):
			response.Fail(c, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrOAuthState):
			response.Fail(c, http.StatusBadRequest, response.MsgInvalidRequest)
		case errors.Is(err, app.ErrOAuthExchange):
			response.Fail(c, http.StatusBadGateway, response.MsgUnavailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
		}
		return
	}

	response.OK(c, authPayload(result))
}

func authPayload(result *app.AuthResult) gin.H {
	return gin.H{
		"token": result.Token,
		"user": gin.H{
			"id":       result.User.ID,
			"username": result.User.Username,
			"email":    result.User.Email,
		},
	}
}
