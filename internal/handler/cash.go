package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiendapos/internal/dto"
	"tiendapos/internal/service"
)

type CashHandler struct{ svc service.CashService }

func NewCashHandler(svc service.CashService) *CashHandler {
	return &CashHandler{svc: svc}
}

// Panel returns the live drawer view for ?day= (default today).
func (h *CashHandler) Panel(c *gin.Context) {
	resp, err := h.svc.GetCashPanel(c.Request.Context(), queryDay(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CashHandler) SetOpening(c *gin.Context) {
	var req dto.SetOpeningCashRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetOpeningCash(c.Request.Context(), queryDay(c), req.OpeningCash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CashHandler) UseSuggestedOpening(c *gin.Context) {
	resp, err := h.svc.UseSuggestedOpeningCash(c.Request.Context(), queryDay(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CashHandler) AddWithdrawal(c *gin.Context) {
	var req dto.AddWithdrawalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddWithdrawal(c.Request.Context(), queryDay(c), req.Amount, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CashHandler) DeleteMove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCashMove(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CashHandler) Close(c *gin.Context) {
	var req dto.CloseCashDayRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CloseCashDay(c.Request.Context(), queryDay(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CashHandler) ListCloses(c *gin.Context) {
	resp, err := h.svc.ListCashCloses(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closes": resp})
}
