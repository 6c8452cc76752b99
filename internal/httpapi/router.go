package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mamog1381/fortune/internal/common"
	"github.com/Mamog1381/fortune/internal/httpapi/handlers"
	"github.com/Mamog1381/fortune/internal/httpapi/middleware"
)

// NewRouter wires every route. Auth endpoints are public, everything else
// requires a Bearer token.
func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	api := r.Group("/api")

	authGrp := api.Group("/auth")
	{
		authGrp.POST("/send-otp/", h.SendOTP)
		authGrp.POST("/verify/", h.VerifyOTP)
		authGrp.GET("/me", middleware.AuthRequired(h.Cfg.JWTSecret), h.Me)
	}

	fortuneGrp := api.Group("/fortune", middleware.AuthRequired(h.Cfg.JWTSecret))
	{
		fortuneGrp.GET("/features/", h.ListFeatures)
		fortuneGrp.GET("/features/by_type/", h.FeatureByType)

		fortuneGrp.POST("/readings/", h.CreateReading)
		fortuneGrp.GET("/readings/", h.ListReadings)
		fortuneGrp.GET("/readings/recent/", h.RecentReadings)
		fortuneGrp.GET("/readings/:id/", h.GetReading)
		fortuneGrp.GET("/readings/:id/status_check/", h.StatusCheck)
		fortuneGrp.POST("/readings/:id/feedback/", h.SubmitFeedback)

		fortuneGrp.GET("/history/", h.History)
		fortuneGrp.GET("/history/statistics/", h.HistoryStatistics)
	}

	return r
}
