package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/Mamog1381/fortune/internal/config"
	"github.com/Mamog1381/fortune/internal/fortune"
	"github.com/Mamog1381/fortune/internal/otp"
)

// Queue is the publish side of the work queue.
type Queue interface {
	PublishReading(ctx context.Context, readingID string) error
	PublishSMS(ctx context.Context, phone, body string) error
}

type Handler struct {
	DB         *gorm.DB
	Cfg        config.Config
	Guard      *otp.Guard
	Queue      Queue
	FortuneSvc *fortune.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, guard *otp.Guard, queue Queue) *Handler {
	svc := fortune.NewService(fortune.NewRepo(db), queue)
	return &Handler{
		DB:         db,
		Cfg:        cfg,
		Guard:      guard,
		Queue:      queue,
		FortuneSvc: svc,
	}
}
