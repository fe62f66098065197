package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type, x-wallet-address, x-message, x-actual-signature"
	allowMethods = "POST, GET, OPTIONS, PUT, DELETE"
)

func corsHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", allowOrigin)
	c.Header("Access-Control-Allow-Headers", allowHeaders)
	c.Header("Access-Control-Allow-Methods", allowMethods)
}

// Success writes {"data": data, "status": "success"} with status 200
func Success(c *gin.Context, data any) {
	SuccessStatus(c, http.StatusOK, data)
}

// SuccessStatus is Success with a caller-chosen 2xx status
func SuccessStatus(c *gin.Context, status int, data any) {
	corsHeaders(c)
	c.JSON(status, gin.H{
		"data":   data,
		"status": "success",
	})
}

// Error writes {"error": message, "status": "error"} and aborts the chain
func Error(c *gin.Context, message string, status int) {
	corsHeaders(c)
	c.AbortWithStatusJSON(status, gin.H{
		"error":  message,
		"status": "error",
	})
}

// Preflight answers a CORS preflight with "ok" and aborts the chain
func Preflight(c *gin.Context) {
	corsHeaders(c)
	c.String(http.StatusOK, "ok")
	c.Abort()
}
