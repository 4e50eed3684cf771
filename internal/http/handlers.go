package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"avoska/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	baskets  *service.BasketService
}

func NewServer(products *service.ProductService, baskets *service.BasketService) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{engine: r, products: products, baskets: baskets}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.engine.GET("/products", s.listProducts)

	baskets := s.engine.Group("/baskets")
	{
		baskets.POST("", s.createBasket)
		baskets.GET(":id", s.getBasket)
		baskets.POST(":id/items", s.addItem)
		baskets.PATCH(":id/items/:itemId", s.updateItem)
		baskets.DELETE(":id/items/:itemId", s.deleteItem)
	}
}

// @Summary List active products in stock
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.ListActiveInStock(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Create empty basket
// @Tags baskets
// @Produce json
// @Success 201 {object} domain.BasketView
// @Router /baskets [post]
func (s *Server) createBasket(c *gin.Context) {
	b, err := s.baskets.Create(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Location", "/baskets/"+b.ID.String())
	c.JSON(http.StatusCreated, b)
}

// @Summary Get basket with items
// @Tags baskets
// @Produce json
// @Param id path string true "Basket ID"
// @Success 200 {object} domain.BasketView
// @Failure 404 {object} map[string]string
// @Router /baskets/{id} [get]
func (s *Server) getBasket(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrBasketNotFound.Error()})
		return
	}
	b, err := s.baskets.Get(c, id)
	if err != nil {
		status := mapErrorToStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

type addItemReq struct {
	ProductID int64  `json:"productId"`
	Amount    *int64 `json:"amount"`
}

// @Summary Add product to basket
// @Tags baskets
// @Accept json
// @Produce json
// @Param id path string true "Basket ID"
// @Param input body addItemReq true "Product and amount"
// @Success 200 {object} domain.BasketView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /baskets/{id}/items [post]
func (s *Server) addItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrBasketNotFound.Error()})
		return
	}
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	// amount is optional and defaults to one unit
	amount := int64(1)
	if req.Amount != nil {
		amount = *req.Amount
	}
	b, err := s.baskets.AddItem(c, id, req.ProductID, amount)
	if err != nil {
		status := mapErrorToStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

type updateItemReq struct {
	Quantity *int64 `json:"quantity"`
}

// @Summary Set item quantity (0 removes the item)
// @Tags baskets
// @Accept json
// @Param id path string true "Basket ID"
// @Param itemId path string true "Item ID"
// @Param input body updateItemReq true "New quantity"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /baskets/{id}/items/{itemId} [patch]
func (s *Server) updateItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrItemNotFound.Error()})
		return
	}
	itemID, err := parseID(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrItemNotFound.Error()})
		return
	}
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required and must be an integer"})
		return
	}
	if err := s.baskets.UpdateItemQuantity(c, id, itemID, *req.Quantity); err != nil {
		status := mapErrorToStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Remove item from basket
// @Tags baskets
// @Param id path string true "Basket ID"
// @Param itemId path string true "Item ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /baskets/{id}/items/{itemId} [delete]
func (s *Server) deleteItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrItemNotFound.Error()})
		return
	}
	itemID, err := parseID(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrItemNotFound.Error()})
		return
	}
	if err := s.baskets.RemoveItem(c, id, itemID); err != nil {
		status := mapErrorToStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrBasketNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrItemNotInBasket):
		return http.StatusNotFound
	case errors.Is(err, service.ErrProductInactive),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
