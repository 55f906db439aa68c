package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	svcErr "github.com/oggyb/destined/internal/errors"
)

// OK writes {"success": true, "message": ..., key: data}.
func OK(c *gin.Context, message, key string, data any) {
	body := gin.H{"success": true, "message": message}
	if key != "" {
		body[key] = data
	}
	c.JSON(http.StatusOK, body)
}

// Fail writes the error envelope. Storage failures are logged with their
// cause and reported to the client without detail.
func Fail(c *gin.Context, log *slog.Logger, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"success": false, "message": svcErr.PublicMessage(err)})
}
