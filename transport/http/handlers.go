package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/service"
	"github.com/gin-gonic/gin"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// VerifyWallet exchanges a wallet signature for an identity token
func (h *AuthHandlers) VerifyWallet(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Signature     string `json:"signature"`
		Message       string `json:"message"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, "Invalid request", http.StatusBadRequest)
		return
	}

	session, err := h.authService.VerifyWallet(c.Request.Context(), req.WalletAddress, req.Signature, req.Message)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Wallet verification failed"

		switch {
		case errors.Is(err, service.ErrMissingFields):
			statusCode = http.StatusBadRequest
			errorMsg = "Missing required fields: walletAddress, signature, message"
		case errors.Is(err, core.ErrInvalidAddress):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid wallet address"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		}

		Error(c, errorMsg, statusCode)
		return
	}

	Success(c, gin.H{
		"token":         session.Token,
		"walletAddress": session.WalletAddress,
		"expiresAt":     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout revokes the bearer token of the request
func (h *AuthHandlers) Logout(c *gin.Context) {
	token, ok := core.HeadersFromHTTP(c.Request.Header).BearerToken()
	if !ok || token == "" {
		Error(c, core.ReasonMissingCredentials.Message(), http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Failed to logout"

		if errors.Is(err, core.ErrInvalidToken) {
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid token"
		}

		Error(c, errorMsg, statusCode)
		return
	}

	Success(c, gin.H{"message": "Logged out"})
}

// Me returns the authenticated principal
func (h *AuthHandlers) Me(c *gin.Context) {
	principal, ok := principalFromGin(c)
	if !ok {
		Error(c, "User not found in context", http.StatusInternalServerError)
		return
	}

	Success(c, gin.H{
		"walletAddress": principal.WalletAddress,
		"source":        principal.Source.String(),
	})
}

// Authorize reports success for any request the gate allowed
func (h *AuthHandlers) Authorize(c *gin.Context) {
	principal, ok := principalFromGin(c)
	if !ok {
		Error(c, "User not found in context", http.StatusInternalServerError)
		return
	}

	Success(c, gin.H{
		"authorized":    true,
		"walletAddress": principal.WalletAddress,
	})
}

// Healthz is the liveness probe
func Healthz(c *gin.Context) {
	Success(c, gin.H{"healthy": true})
}
