package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	authsvc "storefront/internal/service/auth"
)

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
	Token   string `json:"token"`
}

type authHandler struct {
	svc AuthService
	log *slog.Logger
}

func (h *authHandler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username, email and password are required")
		return
	}
	sess, err := h.svc.Signup(c.Request.Context(), authsvc.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{Message: "User created successfully", UserID: sess.UserID, Token: sess.Token})
}

func (h *authHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Message: "Login successful", UserID: sess.UserID, Token: sess.Token})
}

func (h *authHandler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), identityFrom(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
