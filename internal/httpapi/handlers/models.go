package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/model-gateway/internal/common"
)

// GetModels serves the model catalog. The list is a view of the price
// table, so prices shown here are the prices billed.
func (h *Handler) GetModels(c *gin.Context) {
	if _, okk := userIDFromContext(c); !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthenticated")
		return
	}

	entries := h.Prices.Catalog()
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":          e.ModelID,
			"name":        e.Name,
			"provider":    e.Provider,
			"description": e.Description,
			"input_cost":  e.InputCost,
			"output_cost": e.OutputCost,
			"max_tokens":  e.MaxTokens,
		})
	}

	common.OK(c, gin.H{"models": out})
}
