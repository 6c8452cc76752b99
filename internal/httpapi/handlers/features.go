package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mamog1381/fortune/internal/common"
)

func (h *Handler) ListFeatures(c *gin.Context) {
	features, err := h.FortuneSvc.ListFeatures(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, features)
}

// FeatureByType looks up a single active feature via the ?type= query.
func (h *Handler) FeatureByType(c *gin.Context) {
	featureType := c.Query("type")
	if featureType == "" {
		common.Fail(c, http.StatusBadRequest, 10008, "type query parameter is required")
		return
	}

	feature, err := h.FortuneSvc.GetFeatureByType(c.Request.Context(), featureType)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "feature not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, feature)
}
