package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/nearbuy/internal/admin"
	"github.com/sudo-init-do/nearbuy/internal/alerts"
	"github.com/sudo-init-do/nearbuy/internal/auth"
	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/config"
	"github.com/sudo-init-do/nearbuy/internal/geo"
	"github.com/sudo-init-do/nearbuy/internal/kv"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
	mware "github.com/sudo-init-do/nearbuy/internal/middleware"
	"github.com/sudo-init-do/nearbuy/internal/orders"
	"github.com/sudo-init-do/nearbuy/internal/profile"
	"github.com/sudo-init-do/nearbuy/internal/realtime"
	"github.com/sudo-init-do/nearbuy/internal/seed"
	"github.com/sudo-init-do/nearbuy/internal/storage"
)

type deps struct {
	cfg      config.Config
	pool     *pgxpool.Pool
	kv       kv.Store
	enqueuer alerts.Enqueuer
	hub      *realtime.Hub
}

func registerRoutes(e *echo.Echo, d deps) error {
	tokens := auth.NewTokens(d.cfg.JWTSecret, d.cfg.TokenTTL)
	signer := storage.NewSigner(d.cfg.JWTSecret)
	objects, err := storage.NewLocal(d.cfg.StorageDir, d.cfg.BaseURL, signer, d.cfg.AvatarURLTTL)
	if err != nil {
		return err
	}

	resolver := geo.NewResolver(d.kv, geo.NewHTTPGeocoder(d.cfg.GeocoderURL), profile.NewLocations(d.pool),
		geo.Point{Lat: d.cfg.DefaultLat, Lng: d.cfg.DefaultLng})
	market := marketplace.NewHandler(d.pool, objects, resolver, marketplace.NewRecentSearches(d.kv))
	reviews := marketplace.NewReviewHandler(marketplace.NewPgReviews(d.pool))
	carts := cart.NewStore(d.kv)
	orderStore := orders.NewPgStore(d.pool)
	checkout := orders.NewCheckout(orderStore, carts, d.enqueuer, orders.CheckoutOptions{
		DeliveryFee:    d.cfg.DeliveryFee,
		DecrementStock: d.cfg.DecrementStockOnOrder,
	})
	orderHandler := orders.NewHandler(d.pool, checkout, orders.NewLifecycle(orderStore, d.enqueuer))

	authH := auth.NewHandler(d.pool, tokens)
	cartH := cart.NewHandler(carts, market)
	geoH := geo.NewHandler(resolver)
	profileH := profile.NewHandler(d.pool, objects)
	notifications := alerts.NewPgNotifications(d.pool)
	adminH := admin.NewHandler(d.pool, d.enqueuer, d.cfg.CommissionRate)
	realtimeH := realtime.NewHandler(d.hub, d.pool)
	seedH := seed.NewHandler(d.pool)

	// Public routes
	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/login", authH.Login)

	e.GET("/storage/:bucket/*", storage.NewHandler(objects, signer).Serve)
	e.GET("/shops/:id", market.GetShop)
	e.GET("/shops/:id/products", market.GetShopProducts)
	e.GET("/shops/:id/reviews", reviews.GetShopReviews)
	e.GET("/products/:id", market.GetProduct)
	e.GET("/products/:id/reviews", reviews.GetProductReviews)

	// Protected routes
	api := e.Group("")
	api.Use(mware.JWTMiddleware(tokens))

	api.GET("/auth/me", authH.Me)

	api.GET("/profile", profileH.GetProfile)
	api.PATCH("/profile", profileH.UpdateProfile)
	api.POST("/profile/avatar", profileH.UploadAvatar)

	api.POST("/location", geoH.ResolveLocation)
	api.GET("/location", geoH.GetLocation)

	api.GET("/shops", market.ListShops)
	api.GET("/products/search", market.SearchProducts)
	api.GET("/search/recent", market.GetRecentSearches)
	api.DELETE("/search/recent", market.ClearRecentSearches)

	api.POST("/wishlist/:product_id", market.AddToWishlist)
	api.DELETE("/wishlist/:product_id", market.RemoveFromWishlist)
	api.GET("/wishlist", market.GetWishlist)

	api.GET("/cart", cartH.GetCart)
	api.POST("/cart/items", cartH.AddItem)
	api.PATCH("/cart/items/:product_id", cartH.UpdateQuantity)
	api.DELETE("/cart/items/:product_id", cartH.RemoveItem)
	api.DELETE("/cart/sellers/:seller_id", cartH.ClearSeller)
	api.DELETE("/cart", cartH.Clear)

	api.GET("/checkout/:seller_id/quote", orderHandler.QuoteOrder)
	api.POST("/checkout/:seller_id", orderHandler.PlaceOrder)
	api.GET("/orders", orderHandler.GetMyOrders)
	api.GET("/orders/:id", orderHandler.GetOrder)
	api.POST("/orders/:id/cancel", orderHandler.CancelOrder)

	api.POST("/orders/:id/review", reviews.CreateReview)
	api.PATCH("/orders/:id/review", reviews.UpdateReview)
	api.GET("/orders/:id/review", reviews.GetOrderReview)
	api.POST("/orders/:id/items/:item_id/review", reviews.CreateProductReview)

	api.GET("/notifications", notifications.ListNotifications)
	api.POST("/notifications/:id/read", notifications.MarkNotificationRead)

	api.GET("/realtime/orders", realtimeH.OrdersWS)

	// Shop registration is open to any signed-in user; the rest needs an
	// approved shop.
	api.POST("/sellers", market.RegisterSeller)
	api.GET("/sellers/me", market.GetMySeller)
	api.PATCH("/sellers/me", market.UpdateMySeller)
	api.POST("/sellers/me/image", market.UploadShopImage)

	seller := api.Group("", mware.RequireRoles(auth.RoleSeller))
	seller.POST("/sellers/me/open", market.ToggleOpen)
	seller.POST("/sellers/me/products", market.CreateProduct)
	seller.GET("/sellers/me/products", market.GetMyProducts)
	seller.PATCH("/sellers/me/products/:id", market.UpdateProduct)
	seller.DELETE("/sellers/me/products/:id", market.DeleteProduct)
	seller.POST("/sellers/me/products/:id/image", market.UploadProductImage)
	seller.GET("/seller/orders", orderHandler.GetSellerOrders)
	seller.GET("/seller/orders/:id", orderHandler.GetSellerOrder)
	seller.POST("/seller/orders/:id/advance", orderHandler.AdvanceOrder)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware(tokens))
	adminGroup.Use(mware.AdminGuard)

	adminGroup.GET("/stats", adminH.Stats)
	adminGroup.GET("/orders", adminH.ListOrders)
	adminGroup.GET("/commissions", adminH.Commissions)
	adminGroup.GET("/users", adminH.ListUsers)
	adminGroup.POST("/users/:id/suspend", adminH.SuspendUser)
	adminGroup.POST("/users/:id/activate", adminH.ActivateUser)
	adminGroup.GET("/sellers/pending", adminH.PendingSellers)
	adminGroup.POST("/sellers/:id/approve", adminH.ApproveSeller)
	adminGroup.DELETE("/sellers/:id", adminH.RejectSeller)
	adminGroup.POST("/sellers/:id/active", adminH.ToggleSellerActive)
	adminGroup.PUT("/sellers/:id/commission", adminH.SetCommission)

	e.POST("/functions/provision-demo-sellers", seedH.ProvisionDemoSellers, mware.JWTMiddleware(tokens), mware.AdminGuard)
	return nil
}
