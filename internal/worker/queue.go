package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dispatcher hands run jobs to whatever executes them.
type Dispatcher interface {
	Enqueue(ctx context.Context, job RunJob) error
}

// LocalDispatcher submits jobs straight onto the in-process pool.
type LocalDispatcher struct {
	pool   *Pool
	runner *Runner
}

// NewLocalDispatcher wires the default single-process deployment.
func NewLocalDispatcher(pool *Pool, runner *Runner) *LocalDispatcher {
	return &LocalDispatcher{pool: pool, runner: runner}
}

// Enqueue submits the job to the pool.
func (d *LocalDispatcher) Enqueue(_ context.Context, job RunJob) error {
	d.pool.Submit(func(ctx context.Context) {
		d.runner.Execute(ctx, job)
	})
	return nil
}

const runQueueKey = "roster:run_queue"

// RedisDispatcher pushes run jobs onto a redis list so a separate worker
// process can consume them.
type RedisDispatcher struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedisDispatcher wires the queue producer.
func NewRedisDispatcher(rdb *redis.Client, log *zap.Logger) *RedisDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisDispatcher{rdb: rdb, log: log}
}

// Enqueue serializes the job onto the queue.
func (d *RedisDispatcher) Enqueue(ctx context.Context, job RunJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, runQueueKey, payload).Err()
}

// Consume blocks on the queue and feeds jobs to the pool until ctx ends.
func (d *RedisDispatcher) Consume(ctx context.Context, pool *Pool, runner *Runner) {
	for {
		res, err := d.rdb.BRPop(ctx, 5*time.Second, runQueueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			d.log.Warn("run queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}
		var job RunJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			d.log.Warn("bad run job payload", zap.Error(err))
			continue
		}
		pool.Submit(func(c context.Context) {
			runner.Execute(c, job)
		})
	}
}
