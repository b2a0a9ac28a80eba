package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/domain"
	"github.com/MatthewKerns/ecommerce-brand-business-os-sub003/internal/logger"
)

// List limits for the cart endpoints.
const (
	defaultCartListLimit = 100
	maxCartListLimit     = 500
)

// listCarts returns carts in a given lifecycle status.
func (r *Router) listCarts(c *gin.Context) {
	status := domain.CartStatus(c.Query("status"))
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status parameter is required",
		})
		return
	}

	limit, ok := parseLimit(c, defaultCartListLimit, maxCartListLimit)
	if !ok {
		return
	}

	carts, err := r.tracker.ListCarts(c.Request.Context(), status, limit)
	if err != nil {
		handleRepositoryError(c, err, "carts", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"carts": carts,
		"count": len(carts),
	})
}

// getCart returns a single cart with its lifecycle state.
func (r *Router) getCart(c *gin.Context) {
	cartID := c.Param("id")

	cart, err := r.tracker.GetCart(c.Request.Context(), cartID)
	if err != nil {
		r.logger.Debug("Cart lookup failed",
			logger.String("cart_id", cartID),
			logger.Error(err))
		handleRepositoryError(c, err, "cart", "get")
		return
	}

	c.JSON(http.StatusOK, cart)
}
