// Package queue implements a named priority task queue on the store.
//
// Pending tasks live in an ordered set scored by priority (higher first;
// ordering among equal priorities is undefined). Dequeued tasks move to a
// processing hash keyed by task id, and failures are preserved in a failed
// hash annotated with failure time and error text. The pop-and-track step
// runs as one server-side script, so a task is never observable in both
// pending and processing, and a crash between the two cannot lose it.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rediskit"
	"github.com/unkn0wn-root/rediskit/store"
)

// ErrUnknownTask marks complete/fail calls for a task id that is not in the
// processing map. Treated as a logged no-op, not a failure of the queue.
var ErrUnknownTask = errors.New("queue: task id not in processing")

// Task is one unit of work. Payload is opaque to the queue.
type Task struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Priority  float64         `json:"priority"`

	// Set only on failed records.
	FailedAt *time.Time `json:"failed_at,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Stats is a point-in-time count of each lifecycle stage.
type Stats struct {
	Pending    int64
	Processing int64
	Failed     int64
}

// Config tunes a queue. Store and Name are required.
type Config struct {
	Store *store.Store
	Name  string

	Logger rediskit.Logger // nil => NopLogger
	Hooks  rediskit.Hooks  // nil => NopHooks

	// PollInterval is the wait between empty-queue probes while a Dequeue
	// blocks. 0 => 100ms.
	PollInterval time.Duration
}

// Queue is a named priority queue. Safe for concurrent use; consistency
// relies on per-command atomicity and the dequeue script, not on in-process
// locks.
type Queue struct {
	rdb   redis.UniversalClient
	name  string
	log   rediskit.Logger
	hooks rediskit.Hooks
	poll  time.Duration

	pendingKey    string
	processingKey string
	failedKey     string
}

// dequeueScript pops the highest-priority member and inserts it into the
// processing hash in one atomic step.
var dequeueScript = redis.NewScript(`
local popped = redis.call('ZPOPMAX', KEYS[1])
if #popped == 0 then
  return false
end
local member = popped[1]
local task = cjson.decode(member)
redis.call('HSET', KEYS[2], task['id'], member)
return member
`)

func New(cfg Config) (*Queue, error) {
	if cfg.Store == nil {
		return nil, errors.New("queue: store is required")
	}
	if cfg.Name == "" {
		return nil, errors.New("queue: name is required")
	}
	q := &Queue{
		rdb:           cfg.Store.Client(),
		name:          cfg.Name,
		pendingKey:    "queue:" + cfg.Name,
		processingKey: "queue:" + cfg.Name + ":processing",
		failedKey:     "queue:" + cfg.Name + ":failed",
	}
	q.log = cfg.Logger
	if q.log == nil {
		q.log = rediskit.NopLogger{}
	}
	q.hooks = cfg.Hooks
	if q.hooks == nil {
		q.hooks = rediskit.NopHooks{}
	}
	q.poll = cfg.PollInterval
	if q.poll <= 0 {
		q.poll = 100 * time.Millisecond
	}
	return q, nil
}

// Enqueue adds a task with the given priority (higher = more urgent) and
// returns its id. ok=false when the payload is not serializable or the store
// was unreachable; callers should treat that as "try again later".
func (q *Queue) Enqueue(ctx context.Context, payload any, priority float64) (string, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		q.log.Error("enqueue: unserializable payload", rediskit.Fields{"queue": q.name, "err": err})
		return "", false
	}
	t := Task{
		ID:        uuid.NewString(),
		Payload:   body,
		CreatedAt: time.Now().UTC(),
		Priority:  priority,
	}
	member, err := json.Marshal(t)
	if err != nil {
		return "", false
	}
	err = q.rdb.ZAdd(ctx, q.pendingKey, redis.Z{Score: priority, Member: string(member)}).Err()
	if err != nil {
		q.log.Error("enqueue failed", rediskit.Fields{"queue": q.name, "task": t.ID, "err": err})
		return "", false
	}
	return t.ID, true
}

// Dequeue pops the highest-priority pending task and tracks it as
// processing. It blocks cooperatively up to timeout (0 = wait until ctx is
// done), polling the store between probes, and returns (nil, nil) when the
// wait expires with nothing pending. Cancelling ctx aborts the wait
// regardless of timeout.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		member, err := dequeueScript.Run(ctx, q.rdb, []string{q.pendingKey, q.processingKey}).Text()
		if err == nil {
			var t Task
			if err := json.Unmarshal([]byte(member), &t); err != nil {
				return nil, err
			}
			return &t, nil
		}
		if err != redis.Nil {
			q.log.Error("dequeue failed", rediskit.Fields{"queue": q.name, "err": err})
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired:
			return nil, nil
		case <-time.After(q.poll):
		}
	}
}

// Complete removes a finished task from processing. False (and a logged
// anomaly) when the id is unknown - a double-complete is a no-op.
func (q *Queue) Complete(ctx context.Context, taskID string) bool {
	n, err := q.rdb.HDel(ctx, q.processingKey, taskID).Result()
	if err != nil {
		q.log.Error("complete failed", rediskit.Fields{"queue": q.name, "task": taskID, "err": err})
		return false
	}
	if n == 0 {
		q.anomaly(taskID, "complete_unknown")
		return false
	}
	return true
}

// Fail moves a task from processing to the failed hash, annotated with the
// failure time and error text. A missing id is an idempotent no-op: the
// failure record is simply not created.
func (q *Queue) Fail(ctx context.Context, taskID, errText string) bool {
	member, err := q.rdb.HGet(ctx, q.processingKey, taskID).Result()
	if err == redis.Nil {
		q.anomaly(taskID, "fail_unknown")
		return false
	}
	if err != nil {
		q.log.Error("fail lookup failed", rediskit.Fields{"queue": q.name, "task": taskID, "err": err})
		return false
	}

	var t Task
	if err := json.Unmarshal([]byte(member), &t); err != nil {
		q.log.Error("fail: corrupt processing record", rediskit.Fields{"queue": q.name, "task": taskID, "err": err})
		return false
	}
	now := time.Now().UTC()
	t.FailedAt = &now
	t.Error = errText
	record, err := json.Marshal(t)
	if err != nil {
		return false
	}

	pipe := q.rdb.Pipeline()
	pipe.HSet(ctx, q.failedKey, taskID, record)
	pipe.HDel(ctx, q.processingKey, taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error("fail transition failed", rediskit.Fields{"queue": q.name, "task": taskID, "err": err})
		return false
	}
	return true
}

// Stats counts tasks in each lifecycle stage in one pipelined round-trip.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.rdb.Pipeline()
	pending := pipe.ZCard(ctx, q.pendingKey)
	processing := pipe.HLen(ctx, q.processingKey)
	failed := pipe.HLen(ctx, q.failedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Failed:     failed.Val(),
	}, nil
}

func (q *Queue) anomaly(taskID, reason string) {
	q.hooks.QueueAnomaly(q.name, taskID, reason)
	q.log.Warn("queue state anomaly", rediskit.Fields{
		"queue":  q.name,
		"task":   taskID,
		"reason": reason,
		"err":    ErrUnknownTask,
	})
}
