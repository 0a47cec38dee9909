package usage

import (
	"context"
	"sync"
	"time"

	"github.com/davidbz/creditline/internal/domain"
	"github.com/davidbz/creditline/internal/observability"
)

// Config contains usage recorder settings.
type Config struct {
	QueueSize    int           `env:"USAGE_QUEUE_SIZE"    envDefault:"1024"`
	WriteTimeout time.Duration `env:"USAGE_WRITE_TIMEOUT" envDefault:"5s"`
}

// Recorder writes usage records from a single background worker.
type Recorder struct {
	store        domain.UsageStore
	queue        chan *domain.UsageRecord
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(cfg *Config, store domain.UsageStore) *Recorder {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}

	r := &Recorder{
		store:        store,
		queue:        make(chan *domain.UsageRecord, size),
		writeTimeout: cfg.WriteTimeout,
		done:         make(chan struct{}),
	}

	go r.run()

	return r
}

// Record enqueues rec. A full queue or a closed recorder drops the record.
func (r *Recorder) Record(ctx context.Context, rec *domain.UsageRecord) {
	if rec == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		observability.RecordUsageDropped()
		observability.FromContext(ctx).Warn("usage recorder closed, dropping record",
			observability.String("usage_id", rec.ID))
		return
	}

	select {
	case r.queue <- rec:
	default:
		observability.RecordUsageDropped()
		observability.FromContext(ctx).Warn("usage queue full, dropping record",
			observability.String("usage_id", rec.ID))
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for rec := range r.queue {
		r.write(rec)
	}
}

func (r *Recorder) write(rec *domain.UsageRecord) {
	ctx := context.Background()
	if r.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.writeTimeout)
		defer cancel()
	}
	ctx = observability.WithUser(ctx, rec.User)
	ctx = observability.WithModel(ctx, rec.Model)

	if err := r.store.Insert(ctx, rec); err != nil {
		observability.RecordUsageDropped()
		observability.FromContext(ctx).Error("failed to store usage record",
			observability.String("usage_id", rec.ID),
			observability.Error(err))
		return
	}

	observability.FromContext(ctx).Debug("usage recorded",
		observability.String("usage_id", rec.ID),
		observability.Int64("prompt_tokens", rec.PromptTokens),
		observability.Int64("completion_tokens", rec.CompletionTokens))
}
