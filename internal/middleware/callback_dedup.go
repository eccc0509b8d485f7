package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ecitizenpay/internal/metrics"
	"ecitizenpay/internal/models"
	"ecitizenpay/internal/payment"
)

// CallbackDeduper tracks processed STK callbacks by CheckoutRequestID.
type CallbackDeduper interface {
	Seen(ctx context.Context, checkoutRequestID string) (bool, error)
}

type redisCallbackDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisCallbackDeduper) Seen(ctx context.Context, checkoutRequestID string) (bool, error) {
	key := d.prefix + ":" + checkoutRequestID
	ok, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, err
	}
	// false => already exists => duplicate
	return !ok, nil
}

type memoryCallbackDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	now    func() time.Time
	nextGC time.Time
}

func newMemoryCallbackDeduper(ttl time.Duration) *memoryCallbackDeduper {
	now := time.Now()
	return &memoryCallbackDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
		nextGC: now.Add(ttl),
	}
}

func (d *memoryCallbackDeduper) Seen(_ context.Context, checkoutRequestID string) (bool, error) {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[checkoutRequestID]; ok && exp.After(now) {
		return true, nil
	}

	d.seen[checkoutRequestID] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for id, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, id)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}

	return false, nil
}

// NewCallbackDeduper builds a Redis deduper and falls back to in-memory on
// failure. The returned deduper is always usable, even when err is non-nil.
func NewCallbackDeduper(addr, pass string, db int, ttl time.Duration) (CallbackDeduper, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if addr == "" {
		return newMemoryCallbackDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return newMemoryCallbackDeduper(ttl), err
	}

	return &redisCallbackDeduper{
		client: client,
		prefix: "mpesa:callback",
		ttl:    ttl,
	}, nil
}

// CallbackDedup acknowledges repeated STK callbacks without passing them on.
// Only bodies the callback handler will accept claim a slot; anything else
// goes through untouched so the handler can reject it.
func CallbackDedup(deduper CallbackDeduper, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if deduper == nil {
				return next(c)
			}

			req := c.Request()
			if req.Body == nil {
				return next(c)
			}

			rawBody, err := io.ReadAll(io.LimitReader(req.Body, payment.MaxCallbackBody))
			if err != nil {
				return next(c)
			}
			req.Body = io.NopCloser(bytes.NewBuffer(rawBody))
			if len(rawBody) == 0 {
				return next(c)
			}

			result, err := payment.ParseCallback(rawBody)
			if err != nil || result.CheckoutRequestID == "" {
				return next(c)
			}
			id := result.CheckoutRequestID

			isDuplicate, err := deduper.Seen(req.Context(), id)
			if err != nil {
				if logger != nil {
					logger.Warn("Callback dedup check failed", zap.String("checkout_request_id", id), zap.Error(err))
				}
				return next(c)
			}
			if isDuplicate {
				metrics.CallbacksTotal.WithLabelValues("duplicate").Inc()
				if logger != nil {
					logger.Info("Duplicate M-Pesa callback acknowledged", zap.String("checkout_request_id", id))
				}
				// Daraja only needs the acknowledgement to stop retrying.
				return c.JSON(http.StatusOK, models.CallbackAck{ResultCode: 0, ResultDesc: "Success"})
			}

			return next(c)
		}
	}
}
