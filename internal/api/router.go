package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juandiegoalamohe-alt/localpix/internal/api/handlers"
	"github.com/juandiegoalamohe-alt/localpix/internal/api/ws"
	"github.com/juandiegoalamohe-alt/localpix/internal/auth"
	"github.com/juandiegoalamohe-alt/localpix/internal/closing"
	"github.com/juandiegoalamohe-alt/localpix/internal/queue"
	"github.com/juandiegoalamohe-alt/localpix/internal/search"
	"github.com/juandiegoalamohe-alt/localpix/internal/storage"
)

type RouterConfig struct {
	APIKey      string
	DB          *storage.PostgresStore
	Photos      *storage.PhotoStore
	Producer    *queue.Producer
	Hub         *ws.Hub
	Coordinator *closing.Coordinator
	// Engine answers identify queries. Nil when the vision models failed
	// to load; the endpoint then reports unavailability.
	Engine *search.Engine
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Photos, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.RequireKey(cfg.APIKey))

	// Dashboard activity feed
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Identification
	identifyH := handlers.NewIdentifyHandler(cfg.Engine)
	v1.POST("/identify", identifyH.Identify)

	// Photos
	photoH := handlers.NewPhotoHandler(cfg.DB, cfg.Photos, cfg.Producer)
	v1.POST("/photos", photoH.Upload)
	v1.DELETE("/photos/:id", photoH.Delete)

	// Closings
	closingH := handlers.NewClosingHandler(cfg.DB, cfg.Coordinator)
	v1.POST("/closings", closingH.CloseDay)
	v1.GET("/closings", closingH.List)
	v1.GET("/closings/last", closingH.Last)

	return r
}
