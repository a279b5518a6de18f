package router

import (
	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/interfaces/http/handler"
	"github.com/artisanmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers mounted by Setup
type Handlers struct {
	Auth    *handler.AuthHandler
	Bank    *handler.BankHandler
	Product *handler.ProductHandler
	Order   *handler.OrderHandler
	Vendor  *handler.VendorHandler
	Upload  *handler.UploadHandler
	Payment *handler.PaymentHandler
	System  *handler.SystemHandler
}

// Options controls authentication and docs for the marketplace routes
type Options struct {
	JWT middleware.JWTMiddlewareConfig
	// AuthLimiter throttles register, login and refresh. nil disables it.
	AuthLimiter *middleware.RateLimiter
	Swagger     middleware.SwaggerConfig
	// SwaggerHandler serves the docs UI; nil leaves /swagger unmounted
	SwaggerHandler gin.HandlerFunc
}

// Setup mounts health checks, the docs and every /api route on engine
func Setup(engine *gin.Engine, h Handlers, opts Options) *Router {
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	if opts.SwaggerHandler != nil {
		engine.GET("/swagger/*any", middleware.SwaggerProtection(opts.Swagger), opts.SwaggerHandler)
	}

	authn := middleware.JWTAuthMiddlewareWithConfig(opts.JWT)
	sellers := middleware.RequireRole(string(identity.RoleVendor), string(identity.RoleAdmin))

	var throttle []gin.HandlerFunc
	if opts.AuthLimiter != nil {
		throttle = append(throttle, middleware.RateLimit(opts.AuthLimiter))
	}

	r := NewRouter(engine)
	r.Register(authRoutes(h, authn, throttle)).
		Register(bankRoutes(h, authn)).
		Register(productRoutes(h, authn, sellers)).
		Register(orderRoutes(h, authn)).
		Register(vendorRoutes(h, authn, sellers)).
		Register(uploadRoutes(h, authn)).
		Register(paymentRoutes(h, authn)).
		Register(systemRoutes(h)).
		Register(NewDomainGroup("health", "").GET("/health", h.System.Health))
	r.Setup()
	return r
}

func authRoutes(h Handlers, authn gin.HandlerFunc, throttle []gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("auth", "/auth")
	g.POST("/register", chain(throttle, h.Auth.Register)...)
	g.POST("/login", chain(throttle, h.Auth.Login)...)
	g.POST("/refresh", chain(throttle, h.Auth.RefreshToken)...)

	g.Group("session", "").Use(authn).
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.GetCurrentUser)
	return g
}

func bankRoutes(h Handlers, authn gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("bank", "/bank").Use(authn).
		POST("/connect", h.Bank.Connect).
		GET("/balance", h.Bank.Balance)
}

func productRoutes(h Handlers, authn, sellers gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("products", "/products")
	g.GET("", h.Product.List)
	g.GET("/featured", h.Product.Featured)
	g.GET("/categories", h.Product.Categories)
	g.GET("/:id", h.Product.Get)

	g.Group("listings", "").Use(authn, sellers).
		POST("", h.Product.Create).
		PUT("/:id", h.Product.Update).
		DELETE("/:id", h.Product.Delete)
	return g
}

func orderRoutes(h Handlers, authn gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("orders", "/orders").Use(authn).
		POST("", h.Order.Checkout).
		GET("", h.Order.List).
		GET("/:id", h.Order.Get).
		PATCH("/:id/status", h.Order.UpdateStatus).
		PATCH("/:id/tracking", h.Order.SetTracking).
		PATCH("/:id/cancel", h.Order.Cancel)
}

func vendorRoutes(h Handlers, authn, sellers gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("vendors", "/vendors")
	g.GET("/public/:vendorId", h.Vendor.PublicProfile)

	account := g.Group("account", "").Use(authn)
	account.POST("/profile", h.Vendor.SaveProfile)
	account.GET("/profile", h.Vendor.GetProfile)
	account.GET("/ws", h.Vendor.Socket)

	account.Group("store", "").Use(sellers).
		GET("/products", h.Product.ListMine).
		POST("/products/import", h.Product.Import).
		GET("/stats", h.Vendor.Stats).
		GET("/orders", h.Vendor.Orders).
		POST("/orders/:id/delivery-proof", h.Vendor.UploadDeliveryProof)
	return g
}

func uploadRoutes(h Handlers, authn gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("upload", "/upload").Use(authn).
		POST("/imagekit-auth", h.Upload.Authorize).
		POST("/auth", h.Upload.Authorize)
}

func paymentRoutes(h Handlers, authn gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("payments", "/payments").Use(authn).
		POST("/create-payment-intent", h.Payment.CreatePaymentIntent)
}

func systemRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/health", h.System.Health)
	g.GET("/ready", h.System.Ready)
	g.GET("/info", h.System.Info)
	g.GET("/ping", h.System.Ping)
	return g
}

// chain returns a fresh slice so routes never share a backing array
func chain(pre []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+1)
	return append(append(out, pre...), h)
}
