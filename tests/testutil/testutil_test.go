package testutil

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoEngine() *gin.Engine {
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   gin.H{"code": "VALIDATION_ERROR", "message": err.Error()},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"echo":    body,
			"auth":    c.GetHeader("Authorization"),
			"key":     c.GetHeader("Idempotency-Key"),
		})
	})
	r.POST("/upload", func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": "BAD_REQUEST"}})
			return
		}
		f, _ := fh.Open()
		defer f.Close()
		raw, _ := io.ReadAll(f)
		c.JSON(http.StatusOK, gin.H{"success": true, "name": fh.Filename, "content": string(raw)})
	})
	return r
}

func TestClient_Do(t *testing.T) {
	client := NewClient(t, echoEngine())

	resp := client.As("tok-123").Do(http.MethodPost, "/echo", gin.H{"hello": "world"}, "Idempotency-Key", "k-1").
		Expect(http.StatusOK)
	body := resp.JSON()
	assert.Equal(t, "Bearer tok-123", body["auth"])
	assert.Equal(t, "k-1", body["key"])
	assert.Equal(t, "world", resp.Object("echo")["hello"])

	// As must not leak the token into the original client
	anon := client.Do(http.MethodPost, "/echo", gin.H{}).Expect(http.StatusOK)
	assert.Equal(t, "", anon.JSON()["auth"])
}

func TestClient_DoReportsErrors(t *testing.T) {
	client := NewClient(t, echoEngine())
	client.Do(http.MethodPost, "/echo", nil).AssertError(http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestClient_Upload(t *testing.T) {
	client := NewClient(t, echoEngine())
	body := client.Upload("/upload", "file", "stock.csv", []byte("name,price\n")).Expect(http.StatusOK).JSON()
	assert.Equal(t, "stock.csv", body["name"])
	assert.Equal(t, "name,price\n", body["content"])
}

type stubEvent struct {
	shared.BaseDomainEvent
}

func TestEventRecorder(t *testing.T) {
	rec := NewEventRecorder("OrderPlaced")
	assert.Equal(t, []string{"OrderPlaced"}, rec.EventTypes())

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = rec.Handle(context.Background(), &stubEvent{shared.NewBaseDomainEvent("OrderPlaced", "Order", uuid.New())})
		_ = rec.Handle(context.Background(), &stubEvent{shared.NewBaseDomainEvent("OrderCancelled", "Order", uuid.New())})
	}()

	require.True(t, rec.WaitFor("OrderPlaced", 1, time.Second))
	assert.False(t, rec.WaitFor("OrderPlaced", 2, 20*time.Millisecond))
	assert.Len(t, rec.Events(), 2)

	rec.Reset()
	assert.Empty(t, rec.Events())
}
