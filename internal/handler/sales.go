package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiendapos/internal/service"
)

type SalesHandler struct{ svc service.SalesService }

func NewSalesHandler(svc service.SalesService) *SalesHandler {
	return &SalesHandler{svc: svc}
}

func (h *SalesHandler) List(c *gin.Context) {
	resp, err := h.svc.ListSalesSummary(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": resp})
}

func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSaleDetails(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Summary(c *gin.Context) {
	resp, err := h.svc.GetSummary(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) ByDay(c *gin.Context) {
	resp, err := h.svc.TotalSoldByDay(c.Request.Context(), queryInt(c, "days", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": resp})
}

func (h *SalesHandler) TopProducts(c *gin.Context) {
	resp, err := h.svc.TopProducts(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": resp})
}
