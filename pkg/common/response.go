// Package common holds the shared HTTP response envelope used by all
// daemon endpoints.
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse writes a 200 with the payload
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// CreatedResponse writes a 201 with the payload
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// ErrorResponse writes an error with a user-facing message
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
