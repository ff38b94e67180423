package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/http/response"
	"github.com/yungbote/labelbridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
)

// caller pulls the authenticated identity attached by the auth middleware.
// Returns false after writing the response when the identity is missing.
func caller(c *gin.Context) (uuid.UUID, bool, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing caller identity"))
		return uuid.Nil, false, false
	}
	isAdmin := rd.Role == domain.RoleAdmin || rd.Role == domain.RoleSuperAdmin
	return rd.UserID, isAdmin, true
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid %s: %w", name, err))
		return uuid.Nil, false
	}
	return id, true
}

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.New(c.Request.Context())
}
