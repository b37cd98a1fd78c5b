// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Meta    any    `json:"meta,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type Failure struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   ErrorBody `json:"error"`
}

func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

func OKWithMeta(c *gin.Context, status int, message string, data any, meta any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data, Meta: meta})
}

// Fail aborts the chain with an error envelope.
func Fail(c *gin.Context, status int, message string, code string) {
	c.AbortWithStatusJSON(status, Failure{Message: message, Error: ErrorBody{Code: code}})
}

func FailWithDetails(c *gin.Context, status int, message string, code string, details any) {
	c.AbortWithStatusJSON(status, Failure{Message: message, Error: ErrorBody{Code: code, Details: details}})
}
