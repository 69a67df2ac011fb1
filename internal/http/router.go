// Package http wires the gin router, middleware, and handlers.
package http

import (
	"time"

	"github.com/dreamreel/dreamreel-api/internal/billing"
	"github.com/dreamreel/dreamreel-api/internal/config"
	"github.com/dreamreel/dreamreel-api/internal/entitlement"
	"github.com/dreamreel/dreamreel-api/internal/generation"
	"github.com/dreamreel/dreamreel-api/internal/http/handlers"
	"github.com/dreamreel/dreamreel-api/internal/identity"
	"github.com/dreamreel/dreamreel-api/internal/ledger"
	"github.com/dreamreel/dreamreel-api/internal/limits"
	"github.com/dreamreel/dreamreel-api/internal/models"
	"github.com/dreamreel/dreamreel-api/internal/payments"
	"github.com/dreamreel/dreamreel-api/internal/storage"
	"github.com/dreamreel/dreamreel-api/internal/tier"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options carries the dependencies for route registration.
type Options struct {
	Resolver     identity.Resolver
	Enforcer     *limits.Enforcer
	Entitlements *entitlement.Store
	Usage        *ledger.Ledger
	Tiers        tier.Table
	Payments     *payments.Client
	PaymentsCfg  config.PaymentsConfig
	Sync         *billing.Synchronizer
	Videos       *generation.VideoClient
	Images       *generation.ImageClient
	Media        *storage.MediaStore
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", handlers.Healthz)

	api := r.Group("/api")

	webhookHandler := handlers.NewWebhookHandler(opts.Sync, opts.PaymentsCfg.WebhookSecret)
	api.POST("/webhook", webhookHandler.Handle)

	subscriptionHandler := handlers.NewSubscriptionHandler(opts.Entitlements, opts.Usage, opts.Tiers, opts.Payments, opts.PaymentsCfg)
	api.GET("/subscription-plans", subscriptionHandler.Plans)

	authed := api.Group("")
	authed.Use(AuthMiddleware(opts.Resolver))

	authed.GET("/subscription", subscriptionHandler.Current)
	authed.POST("/create-checkout-session", subscriptionHandler.CreateCheckoutSession)
	authed.POST("/create-portal-session", subscriptionHandler.CreatePortalSession)

	generationHandler := handlers.NewGenerationHandler(opts.Videos, opts.Images, opts.Media, opts.Usage)
	authed.GET("/video-status/:taskId", generationHandler.VideoStatus)

	videoAdmitted := authed.Group("")
	videoAdmitted.Use(AdmissionMiddleware(opts.Enforcer, models.KindVideo))
	videoAdmitted.POST("/generate-video-from-image", generationHandler.GenerateVideoFromImage)
	videoAdmitted.POST("/generate-video-from-text", generationHandler.GenerateVideoFromText)

	imageAdmitted := authed.Group("")
	imageAdmitted.Use(AdmissionMiddleware(opts.Enforcer, models.KindImage))
	imageAdmitted.POST("/generate-image", generationHandler.GenerateImage)

	contentHandler := handlers.NewContentHandler(opts.Media)
	authed.GET("/user/videos", contentHandler.Videos)
	authed.GET("/user/images", contentHandler.Images)
	authed.GET("/user/content", contentHandler.All)

	return r
}
