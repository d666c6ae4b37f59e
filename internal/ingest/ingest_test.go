package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev event.Event) (gateway.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return gateway.Report{Kind: ev.Kind, Targeted: 1, Delivered: 1}, nil
}

func (p *capturePublisher) kinds() []event.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Kind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newHTTP(t *testing.T, pub Publisher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(pub, "tok-123").RegisterRoutes(r)
	return r
}

func post(r *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/events", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHTTP_PublishesValidEvent(t *testing.T) {
	pub := &capturePublisher{}
	r := newHTTP(t, pub)

	w := post(r, "tok-123", `{"type":"beneficiary_update","data":{"beneficiaryId":3,"action":"created","unitId":2}}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"kind":"beneficiary_update","targeted":1,"delivered":1,"failed":0}`, w.Body.String())
	require.Len(t, pub.events, 1)
	assert.Equal(t, []int64{2}, pub.events[0].Filter.UnitIDs)
}

func TestHTTP_RequiresToken(t *testing.T) {
	pub := &capturePublisher{}
	r := newHTTP(t, pub)

	assert.Equal(t, http.StatusUnauthorized, post(r, "", `{"type":"dashboard_refresh"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "wrong", `{"type":"dashboard_refresh"}`).Code)
	assert.Empty(t, pub.events)
}

func TestHTTP_EmptyTokenDisablesEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(&capturePublisher{}, "").RegisterRoutes(r)

	assert.Equal(t, http.StatusUnauthorized, post(r, "anything", `{"type":"dashboard_refresh"}`).Code)
}

type fixedStats gateway.Stats

func (s fixedStats) Stats() gateway.Stats { return gateway.Stats(s) }

func TestHTTP_StatsRequireToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(&capturePublisher{}, "tok-123").
		WithStats(fixedStats{Connections: 3, Open: 2, Sessions: 1}).
		RegisterRoutes(r)

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/internal/ws/stats", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, get("").Code)
	assert.Equal(t, http.StatusUnauthorized, get("wrong").Code)

	w := get("tok-123")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connections":3,"open":2,"sessions":1}`, w.Body.String())
}

func TestHTTP_RejectsUnknownKindAndBadPayload(t *testing.T) {
	pub := &capturePublisher{}
	r := newHTTP(t, pub)

	assert.Equal(t, http.StatusBadRequest, post(r, "tok-123", `{"type":"connection","data":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "tok-123", `{"type":"document_update","data":{"action":"x"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "tok-123", `not json`).Code)
	assert.Empty(t, pub.events)
}

type fakeReader struct {
	msgs   chan kafka.Message
	errs   chan error
	closed chan struct{}
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		msgs:   make(chan kafka.Message, 8),
		errs:   make(chan error, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case err := <-f.errs:
		return kafka.Message{}, err
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeReader) Close() error {
	close(f.closed)
	return nil
}

func TestKafkaConsumer_PublishesAndSkipsMalformed(t *testing.T) {
	pub := &capturePublisher{}
	reader := newFakeReader()
	consumer := newKafkaConsumer(reader, pub)
	consumer.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(done)
	}()

	reader.msgs <- kafka.Message{Value: []byte(`{"type":"unknown_kind","data":{}}`)}
	reader.errs <- errors.New("broker unavailable")
	reader.msgs <- kafka.Message{Value: []byte(`{"type":"user_update","data":{"userId":"u-1"}}`)}

	require.Eventually(t, func() bool { return len(pub.kinds()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []event.Kind{event.KindUserUpdate}, pub.kinds())

	cancel()
	<-done
	select {
	case <-reader.closed:
	default:
		t.Fatal("reader not closed on shutdown")
	}
}

func TestConsumeNotifications(t *testing.T) {
	pub := &capturePublisher{}
	notify := make(chan *pq.Notification, 4)

	notify <- nil
	notify <- &pq.Notification{Channel: "case_events", Extra: `{"type":"reference_data_update","data":{"table":"expenditure_types"}}`}
	notify <- &pq.Notification{Channel: "case_events", Extra: `garbage`}
	close(notify)

	consumeNotifications(context.Background(), notify, nil, pub, time.Hour)

	assert.Equal(t, []event.Kind{event.KindReferenceDataUpdate}, pub.kinds())
}
