package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tiendapos/internal/dto"
	"tiendapos/internal/model"
	"tiendapos/internal/service"
)

type ProductsHandler struct{ svc service.CatalogService }

func NewProductsHandler(svc service.CatalogService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// UpsertMany ingests an imported batch (Excel / Sheets sync).
func (h *ProductsHandler) UpsertMany(c *gin.Context) {
	var req dto.UpsertManyRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpsertMany(c.Request.Context(), req.Products)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Search(c *gin.Context) {
	resp, err := h.svc.Search(c.Request.Context(), c.Query("q"), queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ProductsHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteProduct(c.Request.Context(), c.Param("key")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductsHandler) SetInfo(c *gin.Context) {
	var req dto.SetInfoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetInfo(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) SetCategory(c *gin.Context) {
	var req dto.SetCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	applied, err := h.svc.SetCategory(c.Request.Context(), c.Param("key"), req.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

func (h *ProductsHandler) ListCategories(c *gin.Context) {
	cats, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *ProductsHandler) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), c.Param("key"), req.Delta, model.StockMoveAdjust, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Restock is a positive-only adjustment recorded with its own kind so the
// audit log distinguishes deliveries from corrections.
func (h *ProductsHandler) Restock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Delta <= 0 {
		writeError(c, &service.Error{Kind: service.KindValidation, Message: "la reposición debe ser mayor que cero"})
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), c.Param("key"), req.Delta, model.StockMoveRestock, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) SetStock(c *gin.Context) {
	var req dto.SetStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetStock(c.Request.Context(), c.Param("key"), req.Stock, req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) SetPrice(c *gin.Context) {
	var req dto.SetPriceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetPrice(c.Request.Context(), c.Param("key"), req.Price)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetPrice is the public price check endpoint used by the scanner station.
func (h *ProductsHandler) GetPrice(c *gin.Context) {
	resp, err := h.svc.GetPrice(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) ListStockMoves(c *gin.Context) {
	moves, err := h.svc.ListStockMoves(c.Request.Context(), c.Param("key"), queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moves": moves})
}

func (h *ProductsHandler) FindDuplicates(c *gin.Context) {
	groups, err := h.svc.FindDuplicates(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *ProductsHandler) DeleteDuplicates(c *gin.Context) {
	var req dto.DeleteDuplicatesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.DeleteDuplicates(c.Request.Context(), req.KeepFirst)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) SetImage(c *gin.Context) {
	var req dto.SetImageRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.SetImage(c.Request.Context(), c.Param("key"), req.Path); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductsHandler) GetImage(c *gin.Context) {
	resp, err := h.svc.GetImage(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) ClearImage(c *gin.Context) {
	if err := h.svc.ClearImage(c.Request.Context(), c.Param("key")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
