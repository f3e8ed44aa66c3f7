package trader

import (
	"context"

	"github.com/joripage/go_util/pkg/shardqueue"
)

// Dispatcher serializes jobs that share a routing key. Jobs with the same key
// land on the same shard and run one after another; other keys run in
// parallel on other shards.
type Dispatcher struct {
	shardQueue *shardqueue.Shardqueue
}

type dispatchJob struct {
	ctx  context.Context
	run  func(ctx context.Context) Response
	done chan Response
}

func NewDispatcher(numShards, queueSize int) *Dispatcher {
	d := &Dispatcher{
		shardQueue: shardqueue.NewShardQueue(numShards, queueSize),
	}
	d.shardQueue.Start(func(msg interface{}) error {
		if job, ok := msg.(*dispatchJob); ok {
			job.done <- job.run(job.ctx)
		}
		return nil
	})
	return d
}

// Dispatch queues run under key and waits for its response. If ctx ends first
// the job still runs to completion but its response is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, key string, run func(ctx context.Context) Response) Response {
	job := &dispatchJob{
		ctx:  context.WithoutCancel(ctx),
		run:  run,
		done: make(chan Response, 1),
	}
	d.shardQueue.Shard(key, job)

	select {
	case resp := <-job.done:
		return resp
	case <-ctx.Done():
		return errorResponse(errDispatchTimeout)
	}
}
