package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Mamog1381/fortune/internal/auth"
	"github.com/Mamog1381/fortune/internal/common"
	"github.com/Mamog1381/fortune/internal/httpapi/middleware"
	"github.com/Mamog1381/fortune/internal/models"
)

var nonPhoneChars = regexp.MustCompile(`[^\d+]`)

// normalizePhone strips spaces and punctuation and applies the same basic
// shape checks for both OTP endpoints.
func normalizePhone(raw string) (string, error) {
	phone := nonPhoneChars.ReplaceAllString(raw, "")
	if phone == "" {
		return "", fmt.Errorf("invalid phone number format")
	}
	if len(phone) < 10 || len(phone) > 15 {
		return "", fmt.Errorf("phone number must be 10-15 characters")
	}
	return phone, nil
}

type sendOTPReq struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

func (h *Handler) SendOTP(c *gin.Context) {
	var req sendOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "phone_number is required")
		return
	}

	phone, err := normalizePhone(req.PhoneNumber)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		return
	}

	ctx := c.Request.Context()

	if err := h.Guard.CheckAndEnforce(ctx, phone); err != nil {
		if errors.Is(err, common.ErrThrottled) {
			common.Fail(c, http.StatusTooManyRequests, 42901, "too many failed attempts, please try again later")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "cache error")
		return
	}

	canSend, err := h.Guard.CanSend(ctx, phone)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "cache error")
		return
	}
	if !canSend {
		common.Fail(c, http.StatusTooManyRequests, 42902, "please wait before requesting another OTP")
		return
	}

	code, err := h.Guard.GenerateAndStore(ctx, phone)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to generate OTP")
		return
	}

	body := fmt.Sprintf("Your verification code is %s", code)
	if err := h.Queue.PublishSMS(ctx, phone, body); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to dispatch OTP")
		return
	}

	log.Printf("otp requested phone=%s", phone)

	common.OK(c, gin.H{
		"message":      "OTP sent successfully",
		"phone_number": phone,
		"expires_in":   int(h.Cfg.OTPExpiry.Seconds()),
	})
}

type verifyOTPReq struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	OTPCode     string `json:"otp_code" binding:"required"`
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "phone_number and otp_code are required")
		return
	}

	phone, err := normalizePhone(req.PhoneNumber)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, err.Error())
		return
	}
	if len(req.OTPCode) != h.Cfg.OTPLength || !allDigits(req.OTPCode) {
		common.Fail(c, http.StatusBadRequest, 10003, fmt.Sprintf("otp_code must be %d digits", h.Cfg.OTPLength))
		return
	}

	ctx := c.Request.Context()

	if err := h.Guard.CheckAndEnforce(ctx, phone); err != nil {
		if errors.Is(err, common.ErrThrottled) {
			common.Fail(c, http.StatusTooManyRequests, 42901, "too many failed attempts, please try again later")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "cache error")
		return
	}

	if err := h.Guard.Verify(ctx, phone, req.OTPCode); err != nil {
		var invalid *common.InvalidCodeError
		switch {
		case errors.Is(err, common.ErrOTPNotFound):
			common.Fail(c, http.StatusBadRequest, 10010, "OTP expired or not found, please request a new one")
		case errors.Is(err, common.ErrThrottled):
			common.Fail(c, http.StatusTooManyRequests, 42903, "too many failed attempts, your phone number has been temporarily blocked")
		case errors.As(err, &invalid):
			common.FailData(c, http.StatusBadRequest, 10011, "invalid OTP code", gin.H{
				"remaining_attempts": invalid.Remaining,
			})
		default:
			common.Fail(c, http.StatusInternalServerError, 50001, "cache error")
		}
		return
	}

	// get or create the user for this phone number
	var user models.User
	if err := h.DB.Where("phone_number = ?", phone).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusInternalServerError, 50004, "db error")
			return
		}
		user = models.User{PhoneNumber: phone, IsActive: true}
		if err := h.DB.Create(&user).Error; err != nil {
			common.Fail(c, http.StatusInternalServerError, 50004, "db error")
			return
		}
	}

	now := time.Now()
	_ = h.DB.Model(&user).Update("last_login", now).Error

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, h.Cfg.JWTTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to sign token")
		return
	}

	log.Printf("user authenticated phone=%s user_id=%d", phone, user.ID)

	common.OK(c, gin.H{
		"message": "Authentication successful",
		"user":    user,
		"tokens":  gin.H{"access": token},
	})
}

func (h *Handler) Me(c *gin.Context) {
	userID := c.GetUint64(middleware.UserIDKey)

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "db error")
		return
	}

	common.OK(c, user)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
