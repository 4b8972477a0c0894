package http

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vistalink/screen-setup/internal/api/http/handler"
	"github.com/vistalink/screen-setup/internal/api/http/middleware"
	"github.com/vistalink/screen-setup/internal/i18n"
	"github.com/vistalink/screen-setup/internal/qr"
	"github.com/vistalink/screen-setup/internal/telemetry"
)

//go:embed assets/index.html
var indexPage []byte

// Services collects everything the portal surfaces.
type Services struct {
	Status  handler.StatusSource
	Store   handler.CredentialSink
	Scanner handler.NetworkScanner
	Vitals  handler.VitalsSource
	QRCache *qr.Cache
	Catalog *i18n.Catalog
	Metrics *telemetry.Metrics
}

func NewRouter(srvs *Services) *gin.Engine {
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())

	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)

	api := engine.Group("/api/v1")

	statusHandler := handler.NewStatusHandler(srvs.Status, srvs.Vitals, srvs.Catalog)
	api.GET("/status", statusHandler.Status)

	stringsHandler := handler.NewStringsHandler(srvs.Catalog)
	api.GET("/strings", stringsHandler.Strings)

	var observer handler.SubmissionObserver
	if srvs.Metrics != nil {
		observer = srvs.Metrics
	}
	connectHandler := handler.NewConnectHandler(srvs.Store, observer, srvs.Catalog)
	api.POST("/connect", connectHandler.Connect)

	if srvs.Scanner != nil {
		networksHandler := handler.NewNetworksHandler(srvs.Scanner)
		api.GET("/networks", networksHandler.List)
	}

	if srvs.QRCache != nil {
		qrHandler := handler.NewQRHandler(srvs.QRCache, srvs.Status.APNetwork())
		api.GET("/join-qr", qrHandler.JoinCode)
		engine.GET("/qr/:filename", qrHandler.Image)
	}

	if srvs.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(srvs.Metrics.Handler()))
	}

	return engine
}
