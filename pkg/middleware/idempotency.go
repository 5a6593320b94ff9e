package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	"github.com/prohmpiriya/shelf-booking/pkg/response"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ContextKeyIdempotencyKey is the gin context key holding the idempotency key
	ContextKeyIdempotencyKey = "idempotency_key"
	// IdempotencyKeyPrefix namespaces idempotency records in the store
	IdempotencyKeyPrefix = "idempotency:"
	// ReplayHeader is set on responses served from a stored record
	ReplayHeader = "X-Idempotent-Replay"
)

// ErrRecordNotFound is returned by a Store when the key is absent
var ErrRecordNotFound = errors.New("idempotency record not found")

// IdempotencyStatus represents the status of an idempotency record
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord stores the state of an idempotent request
type IdempotencyRecord struct {
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Store persists idempotency records
type Store interface {
	// Get returns ErrRecordNotFound when key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	// SetNX stores value only if key does not exist
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	Store Store
	// TTL of completed records
	TTL time.Duration
	// ProcessingTTL bounds how long an in-flight record blocks retries
	ProcessingTTL time.Duration
	// RequireKey rejects requests without the header instead of passing them through
	RequireKey bool
	// UserIDKey is the gin context key mixed into the request hash
	UserIDKey string
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(store Store) *IdempotencyConfig {
	return &IdempotencyConfig{
		Store:         store,
		TTL:           24 * time.Hour,
		ProcessingTTL: 60 * time.Second,
		UserIDKey:     "user_id",
	}
}

// IdempotencyMiddleware replays the stored response of a completed request
// carrying the same X-Idempotency-Key and rejects concurrent duplicates.
// Store failures fail open.
func IdempotencyMiddleware(config *IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if config.RequireKey {
				response.Error(c, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "X-Idempotency-Key header is required", "")
				return
			}
			c.Next()
			return
		}
		c.Set(ContextKeyIdempotencyKey, key)

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		ctx := c.Request.Context()
		storeKey := IdempotencyKeyPrefix + key
		hash := requestHash(c, body, config.UserIDKey)

		record := &IdempotencyRecord{
			Status:      StatusProcessing,
			RequestHash: hash,
			CreatedAt:   time.Now(),
		}
		data, _ := json.Marshal(record)

		acquired, err := config.Store.SetNX(ctx, storeKey, data, config.ProcessingTTL)
		if err != nil {
			logger.Get().Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if !acquired {
			existing, err := loadRecord(ctx, config.Store, storeKey)
			if err != nil {
				c.Next()
				return
			}
			replay(c, existing, hash)
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusInternalServerError {
			// let the client retry a failed attempt
			_ = config.Store.Del(ctx, storeKey)
			return
		}

		record.Status = StatusCompleted
		record.ResponseCode = status
		record.ResponseBody = rw.body.String()
		data, _ = json.Marshal(record)
		if err := config.Store.Set(ctx, storeKey, data, config.TTL); err != nil {
			logger.Get().Warn("failed to save idempotency record", zap.String("key", key), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, existing *IdempotencyRecord, hash string) {
	switch {
	case existing.RequestHash != hash:
		response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "Idempotency key already used with a different request", "")
	case existing.Status == StatusProcessing:
		response.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "A request with this idempotency key is already being processed", "")
	default:
		c.Header(ReplayHeader, "true")
		c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
		c.Abort()
	}
}

func loadRecord(ctx context.Context, store Store, key string) (*IdempotencyRecord, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var record IdempotencyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func requestHash(c *gin.Context, body []byte, userIDKey string) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte(c.Request.URL.Path))
	if userIDKey != "" {
		h.Write([]byte(c.GetString(userIDKey)))
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// capturingWriter tees the response body so it can be stored
type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
