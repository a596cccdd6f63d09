package db

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
)

const healthTimeout = 5 * time.Second

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name  string
	Ping  func(ctx context.Context) error
	Stats func() any
}

// PostgresCheck probes a pgx pool and reports its statistics.
func PostgresCheck(pool *pgxpool.Pool) Check {
	return Check{
		Name:  "postgres",
		Ping:  pool.Ping,
		Stats: func() any { return GetPoolStats(pool) },
	}
}

// MongoCheck probes a mongo client.
func MongoCheck(client *mongo.Client) Check {
	return Check{
		Name: "mongo",
		Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}
}

// ComponentHealth is the health endpoint's view of one Check.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Stats  any    `json:"stats,omitempty"`
}

// Probe runs every check concurrently and reports whether all of them passed.
func Probe(ctx context.Context, checks ...Check) (map[string]ComponentHealth, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		out     = make(map[string]ComponentHealth, len(checks))
	)
	for _, chk := range checks {
		wg.Add(1)
		go func(chk Check) {
			defer wg.Done()
			h := ComponentHealth{Status: "healthy"}
			if err := chk.Ping(ctx); err != nil {
				h.Status = "unhealthy"
				h.Error = err.Error()
			}
			if chk.Stats != nil {
				h.Stats = chk.Stats()
			}

			mu.Lock()
			defer mu.Unlock()
			out[chk.Name] = h
			if h.Error != "" {
				healthy = false
			}
		}(chk)
	}
	wg.Wait()
	return out, healthy
}

// HealthHandler returns a handler for the storage health check endpoint.
// It answers 503 when any check fails.
func HealthHandler(checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		components, ok := Probe(c.Request().Context(), checks...)

		status, code := "healthy", http.StatusOK
		if !ok {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]interface{}{
			"status":     status,
			"components": components,
		})
	}
}
