package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"machinery-backend/internal/service"
	"machinery-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc       *service.Services
	store     store.Store
	webpush   *webpush.Options
	log       *zap.Logger
	maxUpload int64
}

// Options configures optional handler behaviour.
type Options struct {
	// WebPush is nil when push notifications are not configured.
	WebPush *webpush.Options
	// MaxUploadBytes bounds document uploads; zero means 20 MiB.
	MaxUploadBytes int64
	Log            *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svcs *service.Services, s store.Store, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Handler{
		svc:       svcs,
		store:     s,
		webpush:   opts.WebPush,
		log:       opts.Log,
		maxUpload: opts.MaxUploadBytes,
	}
}
