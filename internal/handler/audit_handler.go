package handler

import (
	"net/http"

	"cinema/internal/middleware"
	"cinema/internal/permission"
	"cinema/internal/service"
	"cinema/pkg/pagination"
	"cinema/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, authn gin.HandlerFunc, perms *permission.Enforcer) {
	group := router.Group("/api/audit-logs")
	group.Use(authn, middleware.RequirePermission(perms, permission.ObjAudit, permission.ActRead)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}

	exceptions := router.Group("/api/exception-logs")
	exceptions.Use(authn, middleware.RequirePermission(perms, permission.ObjAudit, permission.ActRead))
	{
		exceptions.GET("", h.GetExceptionLogs)
	}
}

// GetAuditLogs retrieves paginated records with users pre-loaded
// @Summary      Get audit logs
// @Description  Retrieves the audit trail of catalog changes, purchases and redemptions
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Number of items (default 20)"
// @Param        offset  query     int  false  "Number of items to skip"
// @Success      200     {object}  response.Response{data=pagination.Page[service.AuditLogResponse]}
// @Failure      403     {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(logs, total, p)))
}

// GetExceptionLogs lists internal failures that were reported to callers as 500s
// @Summary      Get exception logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "Number of items (default 20)"
// @Param        offset  query     int  false  "Number of items to skip"
// @Success      200     {object}  response.Response{data=pagination.Page[model.ExceptionLog]}
// @Failure      403     {object}  response.Response
// @Router       /api/exception-logs [get]
func (h *AuditHandler) GetExceptionLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetExceptionLogs(c.Request.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(logs, total, p)))
}
