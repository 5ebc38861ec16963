package refreshtoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupWorker periodically deletes expired refresh tokens.
type CleanupWorker struct {
	service  *Service
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewCleanupWorker(service *Service, interval time.Duration) *CleanupWorker {
	return &CleanupWorker{service: service, interval: interval}
}

func (w *CleanupWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil || w.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, w.done)

	w.service.logger.Info("started refresh token cleanup worker",
		zap.Duration("interval", w.interval))
}

func (w *CleanupWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *CleanupWorker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.service.logger.Error("refresh token cleanup worker failed", zap.Error(err))
			}
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()

	_, err = w.service.CleanupExpired(ctx)
	return err
}
