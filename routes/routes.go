package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kgoldpotera/spotted-avenue-boutique/controllers"
	"github.com/kgoldpotera/spotted-avenue-boutique/middleware"
)

type Controllers struct {
	Checkout     *controllers.CheckoutController
	Webhook      *controllers.WebhookController
	Confirmation *controllers.ConfirmationController
	Orders       *controllers.OrderController
	Cart         *controllers.CartController
	Products     *controllers.ProductController
	Roles        *controllers.RoleController
}

func RegisterRoutes(r *gin.Engine, ctrl Controllers, jwtSecret, serviceToken string) {
	// Stripe calls the webhook directly; no bearer auth, signature only.
	r.POST("/stripe/webhook", ctrl.Webhook.HandleStripeWebhook)

	// Internal service-to-service surface.
	internal := r.Group("/internal")
	internal.Use(middleware.InternalAuth(serviceToken))
	internal.POST("/send-order-confirmation", ctrl.Confirmation.SendOrderConfirmation)

	// Public catalog.
	r.GET("/products", ctrl.Products.ListProducts)
	r.GET("/products/:id", ctrl.Products.GetProduct)
	r.GET("/categories", ctrl.Products.ListCategories)

	// Authenticated shopper surface.
	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(jwtSecret))
	{
		authed.POST("/checkout", ctrl.Checkout.CreateCheckout)

		authed.GET("/cart", ctrl.Cart.GetCart)
		authed.POST("/cart/items", ctrl.Cart.AddItem)
		authed.PUT("/cart/items/:id", ctrl.Cart.UpdateItem)
		authed.DELETE("/cart/items/:id", ctrl.Cart.RemoveItem)

		authed.GET("/orders", ctrl.Orders.GetOrders)
	}

	// Admin panel.
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireAdmin())
	{
		admin.GET("/orders", ctrl.Orders.GetAllOrders)
		admin.PATCH("/orders/:id/status", ctrl.Orders.UpdateOrderStatus)

		admin.POST("/products", ctrl.Products.CreateProduct)
		admin.PUT("/products/:id", ctrl.Products.UpdateProduct)
		admin.DELETE("/products/:id", ctrl.Products.DeleteProduct)
	}

	// Super-admin role management.
	super := r.Group("/admin/roles")
	super.Use(middleware.AuthMiddleware(jwtSecret), middleware.RequireSuperAdmin())
	{
		super.GET("", ctrl.Roles.ListAdmins)
		super.POST("", ctrl.Roles.GrantAdmin)
		super.DELETE("/:user_id", ctrl.Roles.RevokeAdmin)
	}
}
