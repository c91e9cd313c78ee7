package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"warnboard/internal/core/ports"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	store ports.JobStore
}

func NewHealthService(store ports.JobStore) *HealthService {
	return &HealthService{store: store}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	switch store := s.store.(type) {
	case nil:
		status.Status = "down"
		status.Components["store"] = "missing"
	case pinger:
		if err := store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Components["store"] = fmt.Sprintf("unreachable: %v", err)
		} else {
			status.Components["store"] = "ok"
		}
	default:
		status.Components["store"] = "ok (no ping)"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	status.Components["heap"] = fmt.Sprintf("%d MB", mem.Alloc>>20)
	status.Components["goroutines"] = fmt.Sprint(runtime.NumGoroutine())
	return status
}
