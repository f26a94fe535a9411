package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/smallbiznis/invoicely/internal/money"
	productdomain "github.com/smallbiznis/invoicely/internal/product/domain"
)

func (s *Server) CreateProduct(c *gin.Context) {
	var req productdomain.CreateRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	cents, err := majorUnitPrice(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cents != nil {
		req.UnitPriceCents = *cents
	}

	resp, err := s.productSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query productdomain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	query.Query = strings.TrimSpace(query.Query)

	resp, err := s.productSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Products, "page_info": resp.PageInfo})
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProduct(c *gin.Context) {
	var req productdomain.UpdateRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	cents, err := majorUnitPrice(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if cents != nil {
		req.UnitPriceCents = cents
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.productSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProduct(c *gin.Context) {
	if err := s.productSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// majorUnitPrice reads the optional "unit_price" field ("699.00") and
// converts it to cents. It wins over unit_price_cents when both are sent.
func majorUnitPrice(c *gin.Context) (*int64, error) {
	var body struct {
		UnitPrice *string `json:"unit_price"`
	}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return nil, invalidRequestError()
	}
	if body.UnitPrice == nil {
		return nil, nil
	}
	cents, err := money.ParseCents(*body.UnitPrice)
	if err != nil {
		return nil, newValidationError("unit_price", "invalid_unit_price", "must be a non-negative decimal amount")
	}
	return &cents, nil
}
