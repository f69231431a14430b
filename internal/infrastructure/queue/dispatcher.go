package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/deeprisk/fee-risk-system/internal/api/metrics"
	"github.com/deeprisk/fee-risk-system/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrDispatcherStopped is returned by Publish once the workers have exited.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// Dispatcher is the in-process JobQueue. Tasks are routed to a fixed set of
// workers by hashing the job id, so redeliveries of one job stay ordered.
// Delivery is at-most-once: tasks still buffered at shutdown are lost and
// their jobs expire as UNKNOWN.
type Dispatcher struct {
	workers []chan ports.RiskTask
	done    chan struct{}
	stop    sync.Once
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.RiskTask, numWorkers),
		done:    make(chan struct{}),
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.RiskTask, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
// The processor is supplied here rather than at construction because it
// usually depends on the service that publishes into this dispatcher.
func (d *Dispatcher) Start(ctx context.Context, processor ports.RiskProcessor) {
	var wg sync.WaitGroup
	for i, ch := range d.workers {
		wg.Add(1)
		go func(id int, ch <-chan ports.RiskTask) {
			defer wg.Done()
			d.runWorker(ctx, id, ch, processor)
		}(i, ch)
	}
	go func() {
		wg.Wait()
		d.stop.Do(func() { close(d.done) })
	}()
}

// Publish sends a task to the worker responsible for its job id. It blocks
// while that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Publish(ctx context.Context, task ports.RiskTask) error {
	select {
	case <-d.done:
		return ErrDispatcherStopped
	default:
	}
	idx := d.shardIndex(task.JobID)
	select {
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	case d.workers[idx] <- task:
		metrics.QueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	}
}

// shardIndex maps a job id deterministically to a worker index.
func (d *Dispatcher) shardIndex(jobID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.RiskTask, processor ports.RiskProcessor) {
	depth := metrics.QueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-ch:
			depth.Dec()
			if err := processor.Process(ctx, task); err != nil {
				d.log.Error().Err(err).
					Str("job_id", task.JobID).
					Int("worker_id", id).
					Msg("risk task processing failed")
			}
		}
	}
}
