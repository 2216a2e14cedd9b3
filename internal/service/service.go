// Package service implements the machinery lifecycle operations on top of the store.
// Every mutating operation runs in one store transaction; push notifications and
// stream events are emitted only after it commits.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"machinery-backend/internal/auth"
	"machinery-backend/internal/blob"
	"machinery-backend/internal/events"
	"machinery-backend/internal/metrics"
	"machinery-backend/internal/store"
)

// AlertNotifier receives the IDs of high-priority alerts after they are committed.
type AlertNotifier interface {
	Dispatch(alertID int64)
}

// Deps bundles the collaborators shared by every service.
type Deps struct {
	Store    store.Store
	Log      *zap.Logger
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Notifier AlertNotifier
	// Now defaults to time.Now.
	Now func() time.Time
	// Location is the local calendar used for "today"; defaults to time.Local.
	Location *time.Location
}

func (d *Deps) fill() {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
}

// today returns local midnight of the current day.
func (d *Deps) today() time.Time {
	now := d.Now().In(d.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.Location)
}

// publish sends e without letting a stream failure reach the caller.
func (d *Deps) publish(ctx context.Context, e events.Event, actor Actor) {
	e.Actor = actor.Name
	if e.OccurredAt.IsZero() {
		e.OccurredAt = d.Now().UTC()
	}
	if err := d.Events.Publish(context.WithoutCancel(ctx), e); err != nil {
		d.Metrics.EventPublished(e.Type, "error")
		d.Log.Warn("failed to publish event",
			zap.String("type", e.Type), zap.Int64("machine_id", e.MachineID), zap.Error(err))
		return
	}
	d.Metrics.EventPublished(e.Type, "ok")
}

// Services groups every service built from one set of dependencies.
type Services struct {
	Audit       *Recorder
	Registry    *Registry
	Catalog     *Catalog
	Alerts      *Alerts
	Maintenance *Maintenance
	Dashboard   *Dashboard
	Documents   *Documents
	Identity    *Identity
}

// New wires every service around deps. blobs may be nil when documents are disabled.
func New(deps Deps, blobs blob.Store, tokens *auth.JWTManager, opts MaintenanceOptions) *Services {
	deps.fill()
	audit := NewRecorder(deps.Store, deps.Now)
	maintenance := NewMaintenance(deps, audit, opts)
	return &Services{
		Audit:       audit,
		Registry:    NewRegistry(deps, audit, blobs),
		Catalog:     NewCatalog(deps, audit),
		Alerts:      NewAlerts(deps, audit),
		Maintenance: maintenance,
		Dashboard:   NewDashboard(deps, maintenance),
		Documents:   NewDocuments(deps, blobs),
		Identity:    NewIdentity(deps, tokens),
	}
}
