package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/queue"
	"github.com/inkwellhq/inkwell/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memQueue keeps claimed rows in the table, invisible until completed at
// the claim generation they were handed out with.
type memQueue struct {
	mu        sync.Mutex
	nextID    int64
	rows      []*queue.Item
	hidden    map[int64]bool
	completed []int64
}

func newMemQueue() *memQueue {
	return &memQueue{hidden: map[int64]bool{}}
}

func (q *memQueue) Enqueue(ctx context.Context, tenantID, instanceID uuid.UUID, kind string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.rows = append(q.rows, &queue.Item{
		ID:         q.nextID,
		TenantID:   tenantID,
		InstanceID: instanceID,
		Kind:       kind,
	})
	return nil
}

func (q *memQueue) Requeue(ctx context.Context, tenantID, instanceID uuid.UUID, kind string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, row := range q.rows {
		if row.InstanceID == instanceID {
			row.Kind = kind
			row.Attempts++
			q.hidden[row.ID] = false
			return nil
		}
	}
	q.nextID++
	q.rows = append(q.rows, &queue.Item{
		ID:         q.nextID,
		TenantID:   tenantID,
		InstanceID: instanceID,
		Kind:       kind,
	})
	return nil
}

func (q *memQueue) Claim(ctx context.Context, visibilityTimeout time.Duration) (*queue.Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, row := range q.rows {
		if q.hidden[row.ID] {
			continue
		}
		q.hidden[row.ID] = true
		row.Attempts++
		claimed := *row
		return &claimed, nil
	}
	return nil, nil
}

func (q *memQueue) Complete(ctx context.Context, id int64, attempts int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, row := range q.rows {
		if row.ID == id && row.Attempts == attempts {
			q.rows = append(q.rows[:i], q.rows[i+1:]...)
			delete(q.hidden, id)
			q.completed = append(q.completed, id)
			return nil
		}
	}
	return nil
}

func (q *memQueue) Depth(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.rows), nil
}

type recordingDriver struct {
	mu      sync.Mutex
	driven  []*queue.Item
	fail    map[uuid.UUID]error
	onDrive func(item *queue.Item)
}

func (d *recordingDriver) Drive(ctx context.Context, item *queue.Item) error {
	d.mu.Lock()
	d.driven = append(d.driven, item)
	err, failed := d.fail[item.InstanceID]
	d.mu.Unlock()

	if d.onDrive != nil {
		d.onDrive(item)
	}
	if failed {
		return err
	}
	return nil
}

func (d *recordingDriver) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.driven)
}

func runPool(t *testing.T, q queue.System, d *recordingDriver, workers, wantDriven int) {
	t.Helper()

	pool := worker.New(q, d, workers, time.Millisecond, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	// Give the pool a few poll cycles to work through the queue.
	deadline := time.After(2 * time.Second)
	for d.count() < wantDriven {
		select {
		case <-deadline:
			t.Fatalf("pool drove %d items, want %d", d.count(), wantDriven)
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop after cancel")
	}
}

func TestPoolProcessesAndCompletes(t *testing.T) {
	q := newMemQueue()
	tenantID := uuid.New()
	for range 5 {
		q.Enqueue(context.Background(), tenantID, uuid.New(), queue.KindStart, 0)
	}

	d := &recordingDriver{}
	runPool(t, q, d, 3, 5)

	if len(d.driven) != 5 {
		t.Errorf("driven = %d items, want 5", len(d.driven))
	}
	if len(q.completed) != 5 {
		t.Errorf("completed = %d items, want 5", len(q.completed))
	}
	if len(q.rows) != 0 {
		t.Errorf("queue holds %d rows after completion, want 0", len(q.rows))
	}
}

func TestPoolLeavesFailedItemsClaimed(t *testing.T) {
	q := newMemQueue()
	tenantID := uuid.New()
	failing := uuid.New()
	q.Enqueue(context.Background(), tenantID, failing, queue.KindStart, 0)
	q.Enqueue(context.Background(), tenantID, uuid.New(), queue.KindStart, 0)

	d := &recordingDriver{fail: map[uuid.UUID]error{failing: errors.New("transient")}}
	runPool(t, q, d, 1, 2)

	if len(d.driven) != 2 {
		t.Errorf("driven = %d items, want 2", len(d.driven))
	}
	// The failed item is not completed; redelivery is the visibility
	// timeout's job, so its row stays claimed in the table.
	if len(q.completed) != 1 {
		t.Errorf("completed = %d items, want 1", len(q.completed))
	}
	if len(q.rows) != 1 || q.rows[0].InstanceID != failing {
		t.Errorf("queue rows = %+v, want the failed item still claimed", q.rows)
	}
}

func TestPoolKeepsReArmedItems(t *testing.T) {
	q := newMemQueue()
	tenantID := uuid.New()
	instanceID := uuid.New()
	q.Enqueue(context.Background(), tenantID, instanceID, queue.KindStart, 0)

	// Re-arm the item mid-drive, the way a signal landing between the
	// drive and its completion would.
	d := &recordingDriver{}
	d.onDrive = func(item *queue.Item) {
		if item.Kind == queue.KindStart {
			q.Requeue(context.Background(), item.TenantID, item.InstanceID, queue.KindResume)
		}
	}

	runPool(t, q, d, 1, 2)

	// The stale start claim must not delete the re-armed row; the resume
	// is delivered and completed as a second unit of work.
	if len(d.driven) != 2 {
		t.Fatalf("driven = %d items, want 2", len(d.driven))
	}
	if d.driven[0].Kind != queue.KindStart || d.driven[1].Kind != queue.KindResume {
		t.Errorf("driven kinds = %s, %s, want start then resume", d.driven[0].Kind, d.driven[1].Kind)
	}
	if len(q.rows) != 0 {
		t.Errorf("queue holds %d rows, want 0 after the resume completes", len(q.rows))
	}
}

func TestPoolStopsOnCancel(t *testing.T) {
	pool := worker.New(newMemQueue(), &recordingDriver{}, 2, time.Millisecond, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("pool did not stop after cancel")
	}
}

func TestPoolCountFloor(t *testing.T) {
	// A zero or negative count still yields a working single-worker pool.
	pool := worker.New(newMemQueue(), &recordingDriver{}, 0, time.Millisecond, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("pool did not stop")
	}
}
