package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/repository"
	"github.com/jafarshop/storefront/internal/repository/memory"
	"github.com/jafarshop/storefront/internal/service"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/sync", hub.HandleSync())
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sync"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubForwardsStoreChanges(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())
	conn := dialHub(t, hub)

	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, store)

	// Give Run a moment to subscribe before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.Put(ctx, repository.KeyAuthAccounts, []byte(`{}`)))
	require.NoError(t, store.Put(ctx, repository.KeyPendingSellerRequests, []byte(`[]`)))

	msg := readMessage(t, conn)
	assert.Equal(t, "change", msg.Type)
	assert.Equal(t, repository.KeyPendingSellerRequests, msg.Key)
}

func TestHubPushesToastsOnly(t *testing.T) {
	hub := NewHub([]string{"*"}, zap.NewNop())
	conn := dialHub(t, hub)
	ctx := context.Background()

	hub.Notify(ctx, service.Notification{Kind: service.NotificationEmail, Key: "seller.code", Body: "123456"})
	hub.Notify(ctx, service.Notification{Kind: service.NotificationToast, Key: "cart.added", Body: "Dates added to cart"})

	msg := readMessage(t, conn)
	assert.Equal(t, "notification", msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "cart.added", msg.Notification.Key)
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"https://shop.example.com"}, zap.NewNop())
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/sync", hub.HandleSync())
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sync"
	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, _, err := websocket.DefaultDialer.Dial(url, header)
	assert.Error(t, err)
	assert.Zero(t, hub.Clients())
}
