package controllers

import (
	"net/http"

	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/database"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/middleware"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/models"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/cart-service/services"
	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
	"github.com/Bharatkumawat03/pedalWB-sub001/services/common/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountCartFactory returns the account cart reachable with a user's
// bearer token.
type AccountCartFactory func(token string) services.AccountCart

type CartController struct {
	guests     database.GuestBackend
	accounts   AccountCartFactory
	reconciler *services.Reconciler
	guard      services.InFlightGuard
	validator  *RequestValidator
	logger     *zap.Logger
}

func NewCartController(guests database.GuestBackend, accounts AccountCartFactory, reconciler *services.Reconciler, guard services.InFlightGuard, logger *zap.Logger) *CartController {
	return &CartController{
		guests:     guests,
		accounts:   accounts,
		reconciler: reconciler,
		guard:      guard,
		validator:  NewRequestValidator(),
		logger:     logger,
	}
}

type AddItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,max=64"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Name      string          `json:"name" validate:"max=256"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

type MergeResponse struct {
	Cart           *models.CartState `json:"cart"`
	Merged         int               `json:"merged"`
	Failed         int               `json:"failed"`
	FailedProducts []string          `json:"failed_products,omitempty"`
}

// openSession builds the cart session for this request: the guest cart of
// the visitor, switched to the account cart when the request is
// authenticated. resume is false for the merge endpoint, which logs in
// instead.
func (cc *CartController) openSession(c *gin.Context, resume bool) (*services.CartSession, error) {
	log := logger.FromContext(c, cc.logger)
	ctx := c.Request.Context()

	guest := database.NewGuestStore(cc.guests, middleware.GetGuestID(c), log)
	session := services.NewCartSession(ctx, services.SessionOptions{
		Guest:      guest,
		Reconciler: cc.reconciler,
		Guard:      cc.guard,
		Logger:     log,
	})

	if userID, ok := middleware.GetUser(c); ok && resume {
		if _, err := session.Resume(ctx, cc.accounts(middleware.GetToken(c)), userID); err != nil {
			session.Close()
			return nil, err
		}
	}
	return session, nil
}

// withSession runs fn on a request-scoped session and renders its result.
func (cc *CartController) withSession(c *gin.Context, fn func(s *services.CartSession) (*models.CartState, error)) {
	session, err := cc.openSession(c, true)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	defer session.Close()

	state, err := fn(session)
	if err != nil {
		logger.FromContext(c, cc.logger).Info("cart operation failed",
			zap.String("path", c.FullPath()),
			zap.String("phase", string(session.Phase())),
			zap.Error(err),
		)
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetCart returns the guest or account cart.
func (cc *CartController) GetCart(c *gin.Context) {
	cc.withSession(c, func(s *services.CartSession) (*models.CartState, error) {
		return s.State(), nil
	})
}

// AddItem adds a product, incrementing it if already present.
func (cc *CartController) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := cc.validator.Bind(c, &req); err != nil {
		apperrors.HandleError(c, err)
		return
	}

	cc.withSession(c, func(s *services.CartSession) (*models.CartState, error) {
		return s.Add(c.Request.Context(), models.CartLineItem{
			ProductID: req.ProductID,
			Name:      req.Name,
			Image:     req.Image,
			Category:  req.Category,
			Price:     req.Price,
			Quantity:  req.Quantity,
		})
	})
}

func (cc *CartController) UpdateItem(c *gin.Context) {
	var req UpdateQuantityRequest
	if err := cc.validator.Bind(c, &req); err != nil {
		apperrors.HandleError(c, err)
		return
	}

	cc.withSession(c, func(s *services.CartSession) (*models.CartState, error) {
		return s.UpdateQuantity(c.Request.Context(), c.Param("product_id"), req.Quantity)
	})
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	cc.withSession(c, func(s *services.CartSession) (*models.CartState, error) {
		return s.Remove(c.Request.Context(), c.Param("product_id"))
	})
}

func (cc *CartController) ClearCart(c *gin.Context) {
	cc.withSession(c, func(s *services.CartSession) (*models.CartState, error) {
		return s.Clear(c.Request.Context())
	})
}

// MergeCart folds the visitor's guest cart into the signed-in user's account
// cart. The storefront calls it right after login.
func (cc *CartController) MergeCart(c *gin.Context) {
	userID, _ := middleware.GetUser(c)

	session, err := cc.openSession(c, false)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	defer session.Close()

	report, err := session.Login(c.Request.Context(), cc.accounts(middleware.GetToken(c)), userID)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	resp := MergeResponse{
		Cart:   session.State(),
		Merged: report.Merged,
		Failed: len(report.Failures),
	}
	for _, f := range report.Failures {
		resp.FailedProducts = append(resp.FailedProducts, f.Item.ProductID)
	}
	c.JSON(http.StatusOK, resp)
}

func (cc *CartController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "cart-service"})
}
