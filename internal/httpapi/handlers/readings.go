package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Mamog1381/fortune/internal/common"
	"github.com/Mamog1381/fortune/internal/fortune"
	"github.com/Mamog1381/fortune/internal/httpapi/middleware"
)

type createReadingForm struct {
	FeatureType string `json:"feature_type" form:"feature_type"`
	TextInput   string `json:"text_input" form:"text_input"`
	Language    string `json:"language" form:"language"`
}

// CreateReading accepts either a JSON body or a multipart form with an image
// file. It persists the reading in pending state and returns immediately, the
// worker picks it up from the queue.
func (h *Handler) CreateReading(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	var form createReadingForm
	in := fortune.CreateReadingInput{}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&form); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid request body")
			return
		}
		file, err := c.FormFile("image")
		if err == nil {
			if err := fortune.ValidateImageUpload(file.Filename, file.Size); err != nil {
				common.Fail(c, http.StatusBadRequest, 10004, err.Error())
				return
			}
			now := time.Now()
			name := fmt.Sprintf("%s%s", uuid.NewString(), strings.ToLower(filepath.Ext(file.Filename)))
			dest := filepath.Join(h.Cfg.UploadDir, "readings",
				now.Format("2006"), now.Format("01"), now.Format("02"), name)
			if err := c.SaveUploadedFile(file, dest); err != nil {
				common.Fail(c, http.StatusInternalServerError, 50006, "failed to store image")
				return
			}
			in.ImagePath = dest
		}
	} else {
		if err := c.ShouldBindJSON(&form); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid request body")
			return
		}
	}

	in.FeatureType = form.FeatureType
	in.TextInput = form.TextInput
	in.Language = form.Language

	reading, err := h.FortuneSvc.CreateReading(c.Request.Context(), userID, in)
	if err != nil {
		if common.IsValidation(err) {
			common.Fail(c, http.StatusBadRequest, 10005, err.Error())
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50007, "failed to create reading")
		return
	}

	common.Created(c, reading)
}

// StatusCheck returns the current state of a reading so clients can poll
// until processing finishes.
func (h *Handler) StatusCheck(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	reading, err := h.FortuneSvc.GetUserReading(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "reading not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}

	resp := gin.H{
		"id":     reading.ID,
		"status": reading.Status,
	}
	switch reading.Status {
	case fortune.StatusCompleted:
		resp["interpretation"] = reading.Interpretation
		resp["model_used"] = reading.ModelUsed
		resp["processing_time"] = reading.ProcessingTime
	case fortune.StatusFailed:
		resp["error_message"] = reading.ErrorMessage
	}
	common.OK(c, resp)
}

func (h *Handler) GetReading(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	reading, err := h.FortuneSvc.GetUserReading(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "reading not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, reading)
}

// ListReadings returns the caller's readings, newest first. An optional
// ?status= query narrows by state.
func (h *Handler) ListReadings(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	status := c.Query("status")
	switch status {
	case "", string(fortune.StatusPending), string(fortune.StatusProcessing),
		string(fortune.StatusCompleted), string(fortune.StatusFailed):
	default:
		common.Fail(c, http.StatusBadRequest, 10006, "invalid status filter")
		return
	}

	readings, err := h.FortuneSvc.ListUserReadings(c.Request.Context(), userID, status, 100)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, readings)
}

func (h *Handler) RecentReadings(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	readings, err := h.FortuneSvc.ListUserReadings(c.Request.Context(), userID, "", 10)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, readings)
}

type feedbackReq struct {
	Rating   int    `json:"rating" binding:"required"`
	Feedback string `json:"feedback"`
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "rating is required")
		return
	}

	history, err := h.FortuneSvc.SubmitFeedback(c.Request.Context(), userID, c.Param("id"), req.Rating, req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			common.Fail(c, http.StatusNotFound, 40402, "reading not found")
		case common.IsValidation(err):
			common.Fail(c, http.StatusBadRequest, 10007, err.Error())
		default:
			common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		}
		return
	}

	common.OK(c, gin.H{
		"message": "Feedback saved",
		"rating":  history.Rating,
	})
}

func (h *Handler) History(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	entries, err := h.FortuneSvc.ListHistory(c.Request.Context(), userID, 100)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, entries)
}

func (h *Handler) HistoryStatistics(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	stats, err := h.FortuneSvc.HistoryStats(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}
	common.OK(c, stats)
}
