package routes

import (
	"net/http"

	"eventtts/events"
	"eventtts/filemgr"
	"eventtts/middleware"
	"eventtts/orders"
	"eventtts/ratelim"
	"eventtts/reports"
	"eventtts/taxonomy"
	"eventtts/tickets"
	"eventtts/users"

	"github.com/julienschmidt/httprouter"
)

// Handlers collects every HTTP surface the router mounts.
type Handlers struct {
	Auth      *middleware.Auth
	Limiter   *ratelim.RateLimiter
	Events    *events.Handler
	Taxonomy  *taxonomy.Handler
	Users     *users.Handler
	Orders    *orders.Handler
	Tickets   *tickets.Handler
	Live      *tickets.Hub
	Reports   *reports.Handler
	Uploads   *filemgr.Handler
	UploadDir string
}

func AddStaticRoutes(router *httprouter.Router, uploadDir string) {
	router.ServeFiles("/uploads/*filepath", http.Dir(uploadDir))
}

func AddEventsRoutes(router *httprouter.Router, h *Handlers) {
	router.GET("/api/events", h.Events.GetEvents)
	router.GET("/api/events/:eventid", h.Auth.OptionalAuth(h.Events.GetEvent))
	router.GET("/api/events/:eventid/related", h.Events.GetRelatedEvents)
	router.POST("/api/events", h.Limiter.Limit(h.Auth.Authenticate(h.Events.CreateEvent)))
	router.PUT("/api/events/:eventid", h.Limiter.Limit(h.Auth.Authenticate(h.Events.EditEvent)))
	router.DELETE("/api/events/:eventid", h.Limiter.Limit(h.Auth.Authenticate(h.Events.DeleteEvent)))
	router.GET("/api/users/:userid/events", h.Events.GetUserEvents)
}

func AddTaxonomyRoutes(router *httprouter.Router, h *Handlers) {
	router.GET("/api/categories", h.Taxonomy.ListCategories)
	router.GET("/api/categories/:categoryid/events", h.Events.GetCategoryEvents)
	router.GET("/api/tags", h.Taxonomy.ListTags)
}

func AddUserRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/events/:eventid/like", h.Limiter.Limit(h.Auth.Authenticate(h.Users.ToggleLike)))
	router.GET("/api/me/likes", h.Auth.Authenticate(h.Users.GetLikedEvents))
	router.GET("/api/me/profile", h.Auth.Authenticate(h.Users.GetProfile))
	router.GET("/api/me/orders", h.Auth.Authenticate(h.Orders.GetMyOrders))
}

func AddOrderRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/events/:eventid/checkout", h.Limiter.Limit(h.Auth.Authenticate(h.Orders.Checkout)))
	router.GET("/api/events/:eventid/stats", h.Auth.Authenticate(h.Orders.GetEventStats))
}

func AddTicketRoutes(router *httprouter.Router, h *Handlers) {
	router.GET("/api/orders/:orderid/ticket", h.Auth.Authenticate(h.Tickets.PrintTicket))
	router.POST("/api/tickets/verify", h.Limiter.Limit(h.Auth.Authenticate(h.Tickets.VerifyTicket)))
	router.GET("/api/events/:eventid/live", h.Live.ServeLive)
}

func AddReportRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/events/:eventid/report", h.Limiter.Limit(h.Auth.Authenticate(h.Reports.GenerateReport)))
	router.GET("/api/events/:eventid/reports", h.Auth.Authenticate(h.Reports.GetEventReports))
	router.GET("/api/reports/:reportid", h.Auth.Authenticate(h.Reports.GetReport))
	router.GET("/api/reports/:reportid/pdf", h.Auth.Authenticate(h.Reports.GetReportPDF))
}

func AddUploadRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/uploads/photo", h.Limiter.Limit(h.Auth.Authenticate(h.Uploads.UploadPhoto)))
}

// AddWebhookRoutes mounts provider callbacks. They authenticate by signature,
// not by bearer token.
func AddWebhookRoutes(router *httprouter.Router, h *Handlers) {
	router.POST("/api/webhook/stripe", h.Orders.StripeWebhook)
	router.POST("/api/webhook/clerk", h.Users.ClerkWebhook)
}

// SetupRouter builds the router with every API route.
func SetupRouter(h *Handlers) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	AddEventsRoutes(router, h)
	AddTaxonomyRoutes(router, h)
	AddUserRoutes(router, h)
	AddOrderRoutes(router, h)
	AddTicketRoutes(router, h)
	AddReportRoutes(router, h)
	AddUploadRoutes(router, h)
	AddWebhookRoutes(router, h)
	AddStaticRoutes(router, h.UploadDir)

	return router
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("200"))
}
