package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"telehealth-server/internal/apperr"
)

// Success sends {"success": true, "message": message, ...fields}.
func Success(c *gin.Context, message string, fields gin.H) {
	respond(c, http.StatusOK, message, fields)
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, fields gin.H) {
	respond(c, http.StatusCreated, message, fields)
}

func respond(c *gin.Context, status int, message string, fields gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// Error sends {"error": errorMessage} with statusCode.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, gin.H{"error": errorMessage})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// RespondError maps err onto its HTTP status. Unclassified errors are
// reported as a generic 500 and the detail is kept for the request log.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := apperr.StatusCode(err)
	if status == http.StatusInternalServerError {
		InternalServerError(c, "Internal server error")
		return
	}
	Error(c, status, err.Error())
}
