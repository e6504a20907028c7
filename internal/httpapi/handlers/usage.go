package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/model-gateway/internal/common"
)

func (h *Handler) GetUsage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthenticated")
		return
	}

	stats, err := h.UsageSvc.Stats(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to load usage")
		return
	}

	common.OK(c, gin.H{
		"current": stats.Current,
		"history": stats.History,
	})
}
