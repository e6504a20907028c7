package handlers

import (
	"gorm.io/gorm"

	"github.com/suPer8Hu/model-gateway/internal/ai"
	"github.com/suPer8Hu/model-gateway/internal/chat"
	"github.com/suPer8Hu/model-gateway/internal/config"
	"github.com/suPer8Hu/model-gateway/internal/pricing"
	"github.com/suPer8Hu/model-gateway/internal/usage"
)

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Prices   *pricing.Table
	ChatSvc  *chat.Service
	UsageSvc *usage.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, pub usage.Publisher, cache usage.Cache) (*Handler, error) {
	router := ai.NewRouter(
		ai.NewAnthropicProvider(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey),
		ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey),
		ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GoogleAPIKey),
	)

	prices := pricing.Default()

	// a cataloged model without a provider family is a boot failure,
	// not a silent misroute
	if err := router.ValidateModels(prices.ModelIDs()); err != nil {
		return nil, err
	}

	usageSvc := usage.NewService(usage.NewRepo(db), pub, cache, cfg.RateLimitPerHour, cfg.UsageWindow)
	chatSvc := chat.NewService(router, prices, usageSvc)

	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Prices:   prices,
		ChatSvc:  chatSvc,
		UsageSvc: usageSvc,
	}, nil
}
