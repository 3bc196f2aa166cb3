package utils

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/event"
)

type MongoMetrics struct {
	ActiveConnections  int64     `json:"active_connections"`
	CreatedConnections int64     `json:"created_connections"`
	ClosedConnections  int64     `json:"closed_connections"`
	LastCheckTime      time.Time `json:"last_check_time"`
}

var (
	mongoMetrics MongoMetrics

	MongoPoolConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mongo_pool_checked_out_connections",
			Help: "Connections currently checked out of the MongoDB pool",
		},
	)
)

// NewPoolMonitor feeds driver pool events into the connection counters.
func NewPoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				atomic.AddInt64(&mongoMetrics.CreatedConnections, 1)
			case event.ConnectionClosed:
				atomic.AddInt64(&mongoMetrics.ClosedConnections, 1)
			case event.GetSucceeded:
				IncrementActiveConnections()
			case event.ConnectionReturned:
				DecrementActiveConnections()
			}
		},
	}
}

func IncrementActiveConnections() {
	MongoPoolConnections.Set(float64(atomic.AddInt64(&mongoMetrics.ActiveConnections, 1)))
}

func DecrementActiveConnections() {
	MongoPoolConnections.Set(float64(atomic.AddInt64(&mongoMetrics.ActiveConnections, -1)))
}

func GetMongoMetrics() MongoMetrics {
	return MongoMetrics{
		ActiveConnections:  atomic.LoadInt64(&mongoMetrics.ActiveConnections),
		CreatedConnections: atomic.LoadInt64(&mongoMetrics.CreatedConnections),
		ClosedConnections:  atomic.LoadInt64(&mongoMetrics.ClosedConnections),
		LastCheckTime:      time.Now(),
	}
}
