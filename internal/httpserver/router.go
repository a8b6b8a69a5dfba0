package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	authsvc "storefront/internal/service/auth"
	cartsvc "storefront/internal/service/cart"
	mailingsvc "storefront/internal/service/mailing"
)

type AuthService interface {
	Signup(ctx context.Context, in authsvc.SignupInput) (*authsvc.Session, error)
	Login(ctx context.Context, email, password string) (*authsvc.Session, error)
	Verify(ctx context.Context, raw string) (*authsvc.Identity, error)
	Logout(ctx context.Context, id authsvc.Identity) error
}

type CartService interface {
	AddItem(ctx context.Context, userID string, in cartsvc.ItemInput) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, in cartsvc.ItemInput) (*domain.Cart, error)
	ReduceQuantity(ctx context.Context, userID string, in cartsvc.ItemInput) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID string, in cartsvc.ItemInput) (*domain.Cart, error)
	GetCart(ctx context.Context, userID string) (*domain.CartView, error)
	ItemCount(ctx context.Context, userID string) (int, error)
}

type OrderService interface {
	Checkout(ctx context.Context, userID, key string) (*domain.Order, bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.OrderView, error)
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	ListBatch(ctx context.Context, page int) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type MailingService interface {
	Save(ctx context.Context, in mailingsvc.SaveInput) (*domain.MailingEntry, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries the services the router mounts. Metrics is optional.
type Deps struct {
	AuthSvc     AuthService
	CartSvc     CartService
	OrderSvc    OrderService
	ProductSvc  ProductService
	MailingSvc  MailingService
	Store       Pinger
	Metrics     *metrics.Metrics
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.AuthSvc == nil:
		return errors.New("httpserver: auth service is required")
	case d.CartSvc == nil:
		return errors.New("httpserver: cart service is required")
	case d.OrderSvc == nil:
		return errors.New("httpserver: order service is required")
	case d.ProductSvc == nil:
		return errors.New("httpserver: product service is required")
	case d.MailingSvc == nil:
		return errors.New("httpserver: mailing service is required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(log *slog.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	log = logger.OrDiscard(log)

	router := gin.New()
	router.Use(requestLogger(log), gin.CustomRecovery(recoverPanic(log)))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Store))

	auth := &authHandler{svc: deps.AuthSvc, log: log}
	router.POST("/signup", auth.signup)
	router.POST("/login", auth.login)

	catalog := &catalogHandler{svc: deps.ProductSvc, log: log}
	router.GET("/getProducts", catalog.list)
	router.GET("/getProductsBatch", catalog.listBatch)
	router.GET("/products/:id", catalog.get)

	orders := &orderHandler{svc: deps.OrderSvc, log: log}
	router.GET("/orders/:userId", orders.listByUser)
	router.GET("/order/:orderId", orders.get)

	mailing := &mailingHandler{svc: deps.MailingSvc, log: log}
	router.POST("/saveEmail", mailing.save)

	private := router.Group("/", authMiddleware(deps.AuthSvc, log))
	private.POST("/logout", auth.logout)

	cart := &cartHandler{svc: deps.CartSvc, log: log}
	private.GET("/cart", cart.get)
	private.GET("/cart/itemsCount", cart.itemCount)
	private.POST("/cart/add", cart.add)
	private.POST("/cart/remove", cart.remove)
	private.POST("/cart/reduce", cart.reduce)
	private.POST("/cart/setQuantity", cart.setQuantity)
	private.POST("/cart/checkout", orders.checkout)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", headerRequestID},
		ExposeHeaders:    []string{headerRequestID},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
