package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexi-backend/internal/http/response"
	"github.com/yungbote/lexi-backend/internal/platform/apierr"
	"github.com/yungbote/lexi-backend/internal/platform/ctxutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// caller returns the authenticated request data or writes 401.
func caller(c *gin.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.FromError(c, apierr.Unauthenticated(nil))
		return nil, false
	}
	return rd, true
}

func pathUUID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.FromError(c, apierr.BadRequest(code, err))
		return uuid.Nil, false
	}
	return id, true
}

func listLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
