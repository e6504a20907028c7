package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/suPer8Hu/model-gateway/internal/common"
	"github.com/suPer8Hu/model-gateway/internal/config"
	"github.com/suPer8Hu/model-gateway/internal/httpapi/handlers"
	"github.com/suPer8Hu/model-gateway/internal/httpapi/middleware"
	"github.com/suPer8Hu/model-gateway/internal/usage"
)

func NewRouter(db *gorm.DB, cfg config.Config, pub usage.Publisher, cache usage.Cache) (*gin.Engine, error) {
	h, err := handlers.NewHandler(db, cfg, pub, cache)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/ping", h.Ping)

	// CRUD users register
	r.POST("/users", h.CreateUser)

	// auth
	r.POST("/login", h.Login)
	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)
	// gateway (JWT required)
	authGroup.POST("/chat", h.Chat)
	authGroup.GET("/usage", h.GetUsage)
	authGroup.GET("/models", h.GetModels)
	return r, nil
}
