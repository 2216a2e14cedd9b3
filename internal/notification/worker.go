package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"machinery-backend/internal/metrics"
	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to subscribed browsers.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	AlertID   int64  `json:"alert_id"`
	MachineID int64  `json:"machine_id"`
	Priority  string `json:"priority"`
}

// WorkerPool delivers alert notifications to the subscribers of the alerted machine.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool. Jobs are alert IDs.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, log *zap.Logger, m *metrics.Metrics) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("push"),
		metrics: m,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case alertID := <-wp.jobs:
			log.Debug("processing alert", zap.Int64("alert_id", alertID))
			wp.notifyAlert(ctx, alertID)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert for delivery. It never blocks; when the queue is
// full the notification is dropped and logged.
func (wp *WorkerPool) Dispatch(alertID int64) {
	select {
	case wp.jobs <- alertID:
	default:
		wp.metrics.PushDelivered("dropped")
		wp.log.Warn("push queue full, dropping notification", zap.Int64("alert_id", alertID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) notifyAlert(ctx context.Context, alertID int64) {
	alert, err := wp.store.GetAlert(ctx, alertID)
	if err != nil {
		wp.log.Error("failed to load alert", zap.Int64("alert_id", alertID), zap.Error(err))
		return
	}

	subscriptions, err := wp.store.SubscriptionsForMachine(ctx, alert.MachineID)
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", zap.Int64("machine_id", alert.MachineID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(buildPayload(alert))
	if err != nil {
		wp.log.Error("failed to encode payload", zap.Int64("alert_id", alertID), zap.Error(err))
		return
	}

	wp.log.Info("sending notifications", zap.Int64("alert_id", alertID), zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func buildPayload(a *model.Alert) Payload {
	machine := fmt.Sprintf("#%d", a.MachineID)
	if a.Machine != nil {
		machine = fmt.Sprintf("%s (%s)", a.Machine.Name, a.Machine.InventoryCode)
	}
	return Payload{
		Title:     fmt.Sprintf("[%s] %s", a.Priority, a.Title),
		Body:      fmt.Sprintf("Máquina %s: %s", machine, a.Description),
		AlertID:   a.ID,
		MachineID: a.MachineID,
		Priority:  string(a.Priority),
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.PushDelivered("error")
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		wp.metrics.PushDelivered("expired")
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	case resp.StatusCode >= 400:
		wp.metrics.PushDelivered("rejected")
		wp.log.Warn("push service rejected notification", zap.String("endpoint", sub.Endpoint),
			zap.Int("status", resp.StatusCode))
	default:
		wp.metrics.PushDelivered("sent")
	}
}
