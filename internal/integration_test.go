package internal

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"machinery-backend/config"
	"machinery-backend/internal/api"
	"machinery-backend/internal/auth"
	"machinery-backend/internal/blob"
	"machinery-backend/internal/events"
	"machinery-backend/internal/metrics"
	"machinery-backend/internal/model"
	"machinery-backend/internal/notification"
	"machinery-backend/internal/service"
	"machinery-backend/internal/store"
	"machinery-backend/internal/sweeper"
	"machinery-backend/internal/testutil"
)

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) call(method, path string, body, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// browserKeys returns a subscription key pair the way a browser would report it.
func browserKeys(t *testing.T) (p256dh, authSecret string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

// TestMachineLifecycle drives a machine from registration through a critical
// alert, its resolution and a completed maintenance, over real HTTP with push
// delivery and the event stream wired in.
func TestMachineLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	log := zaptest.NewLogger(t)

	pushed := make(chan *http.Request, 4)
	pushServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushed <- r
		w.WriteHeader(http.StatusCreated)
	}))
	defer pushServer.Close()

	mr := miniredis.RunT(t)
	publisher, err := events.Dial(ctx, config.RedisConfig{Addr: mr.Addr(), Stream: "machinery:events", MaxLen: 1000})
	require.NoError(t, err)
	defer publisher.Close()

	vapidPrivate, vapidPublic, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	pushOptions := &webpush.Options{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      "mailto:ops@example.com",
		TTL:             60,
	}

	gdb := testutil.NewDB(t)
	st := store.NewGormStore(gdb)
	m := metrics.New()
	pool := notification.NewWorkerPool(2, st, pushOptions, log, m)
	pool.Start(ctx)

	blobs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	svcs := service.New(service.Deps{
		Store: st, Log: log, Events: publisher, Metrics: m, Notifier: pool, Location: time.UTC,
	}, blobs, auth.NewJWTManager("integration-secret", "machinery-test", time.Hour), service.MaintenanceOptions{})
	require.NoError(t, svcs.Identity.EnsureAdmin(ctx, "admin@example.com", "admin-pass", "Ada", "Root"))

	router := api.NewRouter(api.NewHandler(svcs, st, api.Options{WebPush: pushOptions, Log: log}),
		api.RouterOptions{Log: log, Metrics: m})
	server := httptest.NewServer(router)
	defer server.Close()

	c := &client{t: t, base: server.URL}
	var login service.LoginResult
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, "/api/auth/login",
		map[string]string{"email": "ADMIN@example.com ", "password": "admin-pass"}, &login))
	c.token = login.Token

	// Registration.
	var category model.Category
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/categories",
		map[string]string{"name": "Tornos CNC"}, &category))
	var machine model.Machine
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/machines", map[string]any{
		"inventory_code":    "CNC-001",
		"name":              "Torno CNC",
		"category_id":       category.ID,
		"brand":             "Haas",
		"model":             "ST-10",
		"serial_number":     "HAAS-0001",
		"acquired_on":       "2025-03-01",
		"acquisition_value": "98000000.00",
		"training_center":   "Centro Metalmecánico",
	}, &machine))
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, fmt.Sprintf("/api/machines/%d/status", machine.ID),
		map[string]string{"status": "operativa"}, nil))

	p256dh, secret := browserKeys(t)
	require.Equal(t, http.StatusCreated, c.call(http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint": pushServer.URL + "/push/browser-1", "p256dh": p256dh, "auth": secret,
		"subscribed_machines": []int64{machine.ID},
	}, nil))

	// A critical alert that asks for suspension takes the machine out of service
	// and is pushed to the machine's subscribers.
	var alert model.Alert
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/alerts", map[string]any{
		"machine_id":        machine.ID,
		"type":              "reparacion",
		"title":             "Fuga hidráulica",
		"description":       "Charco de aceite bajo la bancada",
		"priority":          "critica",
		"immediate_actions": []string{model.ActionSuspendOperation},
	}, &alert))

	select {
	case r := <-pushed:
		assert.Equal(t, "/push/browser-1", r.URL.Path)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid")
	case <-time.After(5 * time.Second):
		t.Fatal("alert was not pushed to the subscriber")
	}

	var detail struct {
		Machine model.Machine `json:"machine"`
	}
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, fmt.Sprintf("/api/machines/%d", machine.ID), nil, &detail))
	assert.Equal(t, model.MachineOutOfOrder, detail.Machine.Status)

	var summary service.Summary
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/dashboard/summary", nil, &summary))
	assert.EqualValues(t, 1, summary.TotalMachines)
	assert.EqualValues(t, 1, summary.ActiveAlerts)

	// Resolution.
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", alert.ID),
		map[string]string{"notes": "sello reemplazado"}, nil))
	assert.Equal(t, http.StatusConflict, c.call(http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", alert.ID), nil, nil))
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, fmt.Sprintf("/api/machines/%d/status", machine.ID),
		map[string]string{"status": "operativa", "notes": "reparada"}, nil))

	// Maintenance.
	var record model.ScheduledMaintenance
	require.Equal(t, http.StatusCreated, c.call(http.MethodPost, "/api/maintenance", map[string]any{
		"machine_id":         machine.ID,
		"type":               "correctivo",
		"title":              "Revisión del circuito hidráulico",
		"description":        "Verificar sellos y presión",
		"scheduled_at":       time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
		"estimated_duration": "3:00",
	}, &record))
	require.Equal(t, http.StatusOK, c.call(http.MethodPost, fmt.Sprintf("/api/maintenance/%d/complete", record.ID),
		map[string]any{"actual_cost": "420000"}, &record))
	assert.Equal(t, model.MaintenanceCompleted, record.Status)

	require.Equal(t, http.StatusOK, c.call(http.MethodGet, fmt.Sprintf("/api/machines/%d", machine.ID), nil, &detail))
	require.NotNil(t, detail.Machine.NextMaintenanceOn)
	assert.True(t, detail.Machine.NextMaintenanceOn.After(time.Now()))

	var history []model.HistoryEntry
	require.Equal(t, http.StatusOK, c.call(http.MethodGet,
		fmt.Sprintf("/api/machines/%d/history?limit=50", machine.ID), nil, &history))
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].OccurredAt.After(history[i].OccurredAt), "history must be strictly ordered")
	}

	// The sweeper snapshot and the event stream see the whole lifecycle.
	_, err = sweeper.New(svcs, st, "@daily", time.UTC, log, m).RunOnce(ctx)
	require.NoError(t, err)
	var perf []model.PerformanceMetrics
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/metrics/performance", nil, &perf))
	require.Len(t, perf, 1)
	assert.EqualValues(t, 1, perf[0].TotalMachines)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	msgs, err := rdb.XRange(ctx, "machinery:events", "-", "+").Result()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, msg := range msgs {
		seen[msg.Values["type"].(string)] = true
	}
	for _, typ := range []string{
		events.MachineCreated, events.MachineStatusChanged, events.AlertCreated,
		events.AlertResolved, events.MaintenanceScheduled, events.MaintenanceCompleted,
	} {
		assert.True(t, seen[typ], "missing %s event", typ)
	}
}
