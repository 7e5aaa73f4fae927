package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiendapos/internal/dto"
	"tiendapos/internal/service"
)

type AdminHandler struct{ svc service.AdminService }

func NewAdminHandler(svc service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) ResetDatabase(c *gin.Context) {
	var req dto.ResetDatabaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ResetDatabase(c.Request.Context(), req.Confirm); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
