package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, hub *Hub, vendorID uuid.UUID) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, vendorID)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_EmitReachesOnlyVendorRoom(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	vendorA := uuid.New()
	vendorB := uuid.New()
	connA := dial(t, startHub(t, hub, vendorA))
	_ = dial(t, startHub(t, hub, vendorB))

	require.Eventually(t, func() bool {
		return hub.RoomSize(vendorA) == 1 && hub.RoomSize(vendorB) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Emit(vendorA, EventProductsUpdated, map[string]any{"action": "created"})

	msg := readMessage(t, connA)
	assert.Equal(t, EventProductsUpdated, msg["event"])
	assert.Equal(t, "created", msg["data"].(map[string]any)["action"])
}

func TestHub_ClientLeavesRoomOnDisconnect(t *testing.T) {
	hub := NewHub(nil, nil)
	vendorID := uuid.New()
	conn := dial(t, startHub(t, hub, vendorID))

	require.Eventually(t, func() bool { return hub.RoomSize(vendorID) == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()

	assert.Eventually(t, func() bool { return hub.RoomSize(vendorID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub([]string{"https://artisanmarket.example"}, nil)
	url := startHub(t, hub, uuid.New())

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestNotifier_PushesOrderCreatedToEachVendor(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	vendorA := uuid.New()
	vendorB := uuid.New()
	connA := dial(t, startHub(t, hub, vendorA))
	connB := dial(t, startHub(t, hub, vendorB))
	require.Eventually(t, func() bool {
		return hub.RoomSize(vendorA) == 1 && hub.RoomSize(vendorB) == 1
	}, time.Second, 10*time.Millisecond)

	event := &order.OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeOrderPlaced, order.AggregateTypeOrder, uuid.New()),
		OrderNumber:     "ORD-261019-0001",
		VendorIDs:       []uuid.UUID{vendorA, vendorB},
		Total:           decimal.NewFromInt(42),
	}
	require.NoError(t, NewNotifier(hub).Handle(context.Background(), event))

	for _, conn := range []*websocket.Conn{connA, connB} {
		msg := readMessage(t, conn)
		assert.Equal(t, EventOrderCreated, msg["event"])
		assert.Equal(t, "ORD-261019-0001", msg["data"].(map[string]any)["orderNumber"])
	}
}

func TestNotifier_PushesProductsUpdated(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	vendorID := uuid.New()
	conn := dial(t, startHub(t, hub, vendorID))
	require.Eventually(t, func() bool { return hub.RoomSize(vendorID) == 1 }, time.Second, 10*time.Millisecond)

	event := &catalog.ProductDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(catalog.EventTypeProductDeleted, catalog.AggregateTypeProduct, uuid.New()),
		VendorID:        vendorID,
	}
	require.NoError(t, NewNotifier(hub).Handle(context.Background(), event))

	msg := readMessage(t, conn)
	assert.Equal(t, EventProductsUpdated, msg["event"])
	assert.Equal(t, "deleted", msg["data"].(map[string]any)["action"])
}

func TestNotifier_PushesLowStockDigest(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	vendorID := uuid.New()
	conn := dial(t, startHub(t, hub, vendorID))
	require.Eventually(t, func() bool { return hub.RoomSize(vendorID) == 1 }, time.Second, 10*time.Millisecond)

	product, err := catalog.NewProduct(vendorID, "Linen Apron", decimal.NewFromInt(30), 1, nil)
	require.NoError(t, err)
	event := catalog.NewLowStockDigestEvent(vendorID, []catalog.Product{*product}, 3)
	require.NoError(t, NewNotifier(hub).Handle(context.Background(), event))

	msg := readMessage(t, conn)
	assert.Equal(t, EventLowStock, msg["event"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, float64(3), data["total"])
	items := data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Linen Apron", items[0].(map[string]any)["name"])
}
