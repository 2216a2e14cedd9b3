package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"machinery-backend/internal/metrics"
	"machinery-backend/internal/model"
	"machinery-backend/internal/store"
	dbtest "machinery-backend/internal/testutil"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func respond(status int) (*http.Response, error) {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}, nil
}

type poolFixture struct {
	st      store.Store
	pool    *WorkerPool
	metrics *metrics.Metrics
	alert   *model.Alert
}

func newPoolFixture(t *testing.T, endpoints ...string) *poolFixture {
	t.Helper()
	gdb := dbtest.NewDB(t)
	st := store.NewGormStore(gdb)
	cat := dbtest.SeedCategory(t, gdb, "Tornos")
	m := dbtest.SeedMachine(t, gdb, cat.ID, "MAQ-001", model.MachineOperational)
	other := dbtest.SeedMachine(t, gdb, cat.ID, "MAQ-002", model.MachineOperational)

	ctx := context.Background()
	a := &model.Alert{
		MachineID:   m.ID,
		Type:        model.AlertRepair,
		Priority:    model.PriorityCritical,
		Status:      model.AlertActive,
		Title:       "Falla eléctrica",
		Description: "Chispas en el tablero",
	}
	require.NoError(t, st.CreateAlert(ctx, a))
	for _, ep := range endpoints {
		sub := &model.PushSubscription{Endpoint: ep, P256DH: "p256dh", Auth: "auth"}
		require.NoError(t, st.SaveSubscription(ctx, sub, []int64{m.ID}))
	}
	// Subscribers of another machine are never notified.
	require.NoError(t, st.SaveSubscription(ctx,
		&model.PushSubscription{Endpoint: "https://push.example.com/other", P256DH: "p", Auth: "a"},
		[]int64{other.ID}))

	met := metrics.New()
	return &poolFixture{
		st:      st,
		pool:    NewWorkerPool(1, st, &webpush.Options{}, zaptest.NewLogger(t), met),
		metrics: met,
		alert:   a,
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, nil, &webpush.Options{}, nil, nil)

	wp.Dispatch(123)

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, int64(123), job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchNeverBlocks(t *testing.T) {
	wp := NewWorkerPool(1, nil, &webpush.Options{}, nil, metrics.New())
	capacity := cap(wp.Jobs())
	for i := 0; i < capacity+5; i++ {
		wp.Dispatch(int64(i))
	}
	assert.Len(t, wp.Jobs(), capacity)
	assert.Equal(t, 5.0, testutil.ToFloat64(wp.metrics.PushDeliveries.WithLabelValues("dropped")))
}

func TestWorkerPool_SendsAlertToMachineSubscribers(t *testing.T) {
	f := newPoolFixture(t, "https://push.example.com/a", "https://push.example.com/b")

	var mu sync.Mutex
	var endpoints []string
	var wg sync.WaitGroup
	wg.Add(2)
	f.pool.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			var p Payload
			assert.NoError(t, json.Unmarshal(payload, &p))
			assert.Equal(t, f.alert.ID, p.AlertID)
			assert.Equal(t, "critica", p.Priority)
			assert.Equal(t, "[critica] Falla eléctrica", p.Title)
			assert.Equal(t, "Máquina Torno MAQ-001 (MAQ-001): Chispas en el tablero", p.Body)
			mu.Lock()
			endpoints = append(endpoints, sub.Endpoint)
			mu.Unlock()
			return respond(http.StatusCreated)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pool.Start(ctx)
	f.pool.Dispatch(f.alert.ID)
	wg.Wait()

	assert.ElementsMatch(t, []string{"https://push.example.com/a", "https://push.example.com/b"}, endpoints)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.PushDeliveries.WithLabelValues("sent")) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	f := newPoolFixture(t, "https://push.example.com/expired")
	f.pool.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			return respond(http.StatusGone)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pool.Start(ctx)
	f.pool.Dispatch(f.alert.ID)

	require.Eventually(t, func() bool {
		_, err := f.st.GetSubscription(context.Background(), "https://push.example.com/expired")
		return errors.Is(err, model.ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PushDeliveries.WithLabelValues("expired")))

	_, err := f.st.GetSubscription(context.Background(), "https://push.example.com/other")
	assert.NoError(t, err)
}

func TestWorkerPool_SendErrorDoesNotStopDelivery(t *testing.T) {
	f := newPoolFixture(t, "https://push.example.com/a", "https://push.example.com/b")

	var wg sync.WaitGroup
	wg.Add(2)
	f.pool.sender = &mockSender{
		SendFunc: func(_ []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			if sub.Endpoint == "https://push.example.com/a" {
				return nil, errors.New("connection reset")
			}
			return respond(http.StatusCreated)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.pool.Start(ctx)
	f.pool.Dispatch(f.alert.ID)
	wg.Wait()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.PushDeliveries.WithLabelValues("error")) == 1 &&
			testutil.ToFloat64(f.metrics.PushDeliveries.WithLabelValues("sent")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWorkerPool_AlertLookupFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	wp := NewWorkerPool(1, store.NewGormStore(gormDB), &webpush.Options{}, zaptest.NewLogger(t), nil)
	wp.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			t.Error("no notification expected when the alert cannot be loaded")
			return respond(http.StatusCreated)
		},
	}

	mock.ExpectQuery(`SELECT \* FROM "alerts" WHERE "alerts"."id" = \$1 ORDER BY "alerts"."id" LIMIT \$2`).
		WithArgs(int64(7), 1).
		WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Dispatch(7)

	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 10*time.Millisecond)
}
