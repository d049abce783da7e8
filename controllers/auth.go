package controllers

import (
	"net/http"
	"time"

	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthController logs in the single shop operator configured in the
// environment.
type AuthController struct {
	Username     string
	PasswordHash string
	Secret       string
	TTL          time.Duration
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the operator credentials and returns a bearer token
func (a *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if a.PasswordHash == "" || input.Username != a.Username || !utils.CheckPasswordHash(input.Password, a.PasswordHash) {
		zap.L().Warn("failed login", zap.String("username", input.Username), zap.String("ip", c.ClientIP()))
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(a.Secret, a.Username, a.TTL)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.SetCookie("token", token, int(a.TTL.Seconds()), "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    gin.H{"username": a.Username},
	})
}

// Me returns the authenticated operator
func (a *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": utils.Operator(c)})
}
