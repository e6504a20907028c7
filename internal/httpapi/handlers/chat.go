package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/model-gateway/internal/ai"
	"github.com/suPer8Hu/model-gateway/internal/chat"
	"github.com/suPer8Hu/model-gateway/internal/common"
	"github.com/suPer8Hu/model-gateway/internal/httpapi/middleware"
	"github.com/suPer8Hu/model-gateway/internal/pricing"
	"github.com/suPer8Hu/model-gateway/internal/usage"
)

const (
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
)

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, okk := c.Get(middleware.UserIDKey)
	if !okk {
		return 0, false
	}
	id, okk := v.(uint64)
	return id, okk
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model       string    `json:"model"`
	Messages    []chatMsg `json:"messages"`
	MaxTokens   *int      `json:"max_tokens"`
	Temperature *float64  `json:"temperature"`
}

func (h *Handler) Chat(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthenticated")
		return
	}

	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	msgs := make([]ai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, ai.Message{Role: m.Role, Content: m.Content})
	}

	res, err := h.ChatSvc.Handle(c.Request.Context(), uid, ai.Request{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		var provErr *ai.ProviderError
		switch {
		case errors.Is(err, chat.ErrInvalidArgument):
			common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		case errors.Is(err, usage.ErrRateLimitExceeded):
			common.Fail(c, http.StatusTooManyRequests, 42901, err.Error())
		case errors.Is(err, ai.ErrUnsupportedModel):
			common.Fail(c, http.StatusBadRequest, 10010, err.Error())
		case errors.Is(err, pricing.ErrUnknownPricing):
			common.Fail(c, http.StatusInternalServerError, 50010, err.Error())
		case errors.As(err, &provErr):
			common.Fail(c, http.StatusBadGateway, 50201, provErr.Error())
		default:
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		}
		return
	}

	common.OK(c, gin.H{
		"content": res.Content,
		"model":   res.Model,
		"usage": gin.H{
			"input_tokens":  res.InputTokens,
			"output_tokens": res.OutputTokens,
			"total_tokens":  res.TotalTokens(),
		},
	})
}
