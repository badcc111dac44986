// server/internal/api/routes/routes.go
package routes

import (
	"agritrace-api-server/config"
	"agritrace-api-server/internal/api/handlers"
	"agritrace-api-server/internal/api/middleware"
	"agritrace-api-server/internal/provenance"
	"agritrace-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter wires the handlers onto the gin engine.
func SetupRouter(
	cfg config.Config,
	db *mongo.Database,
	service *provenance.Service,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	userHandler := &handlers.UserHandler{DB: db, Cfg: cfg}
	harvestHandler := &handlers.HarvestHandler{DB: db}
	qrCodeHandler := &handlers.QRCodeHandler{Service: service}
	verifyHandler := &handlers.VerifyHandler{Service: service, Hub: wsHub}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	apiV1 := router.Group("/api/v1")
	{
		// WebSocket scan feed (JWT in query string)
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === PUBLIC ROUTES ===

		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}

		public := apiV1.Group("/")
		{
			// Provenance lookup behind the scannable URL, no JWT required
			public.GET("/verify/:batchId", verifyHandler.VerifyBatch)

			// Anonymous scans are allowed; authenticated scanners are
			// attributed on the audit entry.
			scans := public.Group("/qrcodes/:id")
			scans.Use(middleware.OptionalAuthenticate())
			{
				scans.POST("/scans", verifyHandler.RecordScan)
			}
		}

		// === PROTECTED ROUTES ===

		businessRoutes := apiV1.Group("/")
		businessRoutes.Use(middleware.Authenticate())
		businessRoutes.Use(middleware.Authorize("farmer", "admin"))
		{
			// Harvest management
			harvests := businessRoutes.Group("/harvests")
			{
				harvests.POST("/", harvestHandler.CreateHarvest)
				harvests.GET("/", harvestHandler.GetMyHarvests)
				harvests.GET("/:id", harvestHandler.GetHarvestByID)

				adminHarvests := harvests.Group("/")
				adminHarvests.Use(middleware.Authorize("admin"))
				{
					adminHarvests.PUT("/:id/status", harvestHandler.UpdateHarvestStatus)
				}
			}

			// QR code management
			qrcodes := businessRoutes.Group("/qrcodes")
			{
				qrcodes.GET("/", qrCodeHandler.List)
				qrcodes.POST("/", qrCodeHandler.Issue)
				qrcodes.GET("/stats", qrCodeHandler.Stats)
				qrcodes.POST("/reconcile-expired", qrCodeHandler.ReconcileExpired)
				qrcodes.GET("/:id", qrCodeHandler.GetByID)
				qrcodes.GET("/:id/image", qrCodeHandler.DownloadImage)
				qrcodes.POST("/:id/downloads", qrCodeHandler.RecordDownload)
				qrcodes.POST("/:id/revoke", qrCodeHandler.Revoke)
				qrcodes.POST("/:id/verified", qrCodeHandler.MarkVerified)
				qrcodes.DELETE("/:id", qrCodeHandler.Delete)
			}
		}
	}

	return router
}
