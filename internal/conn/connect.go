// Package conn implements the connection manager (spec §4.7): the
// per-transport-stream object a WebSocket/gRPC/long-poll handler holds,
// responsible for buffering outbound events to one physical stream with
// priority-aware backpressure. Adapted directly from the teacher's
// internal/domain/registry/connect.go.
package conn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/im-sync-core/internal/domain/model"
)

// Connector is the interface internal/hub uses to reach a live stream.
type Connector interface {
	GetID() uuid.UUID
	GetUserID() uuid.UUID
	GetSessionID() uuid.UUID
	Send(ev model.Eventer, timeout time.Duration) bool
	Recv() <-chan model.Eventer
	// IsAlive reports whether the underlying transport stream is still
	// live, used by internal/router to detect a silently-dead session
	// before attempting a push (spec §4.8 stale-session eviction).
	IsAlive() bool
	Close()
}

var _ Connector = (*connection)(nil)

type connection struct {
	id        uuid.UUID
	userID    uuid.UUID
	sessionID uuid.UUID
	createdAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc

	sendCh chan model.Eventer

	closeOnce      sync.Once
	lastActivityAt int64
	droppedCount   uint64
}

// sync.Pool backed allocation, same rationale as the teacher: connections
// churn at the rate of reconnects, which on a busy node can be substantial.
var connPool = sync.Pool{New: func() any { return &connection{} }}

// New creates (or recycles) a Connector bound to sessionID for userID.
func New(ctx context.Context, userID, sessionID uuid.UUID, bufferSize int) Connector {
	c := connPool.Get().(*connection)
	c.reset(ctx, userID, sessionID, bufferSize)
	return c
}

func (c *connection) reset(ctx context.Context, userID, sessionID uuid.UUID, bufferSize int) {
	childCtx, cancel := context.WithCancel(ctx)
	*c = connection{
		id:             uuid.New(),
		userID:         userID,
		sessionID:      sessionID,
		createdAt:      time.Now(),
		ctx:            childCtx,
		cancelFn:       cancel,
		sendCh:         make(chan model.Eventer, bufferSize),
		lastActivityAt: time.Now().UnixNano(),
	}
}

func (c *connection) GetID() uuid.UUID        { return c.id }
func (c *connection) GetUserID() uuid.UUID    { return c.userID }
func (c *connection) GetSessionID() uuid.UUID { return c.sessionID }

// Send enqueues ev, waiting up to timeout for buffer space before falling
// back to priority-based eviction (spec §5 backpressure).
func (c *connection) Send(ev model.Eventer, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	case <-c.ctx.Done():
		return false
	case c.sendCh <- ev:
		return true
	case <-ctx.Done():
		return c.handleBackpressure(ev, timeout)
	}
}

func (c *connection) handleBackpressure(ev model.Eventer, timeout time.Duration) bool {
	if ev.GetPriority() <= model.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	select {
	case old := <-c.sendCh:
		if old.GetPriority() < ev.GetPriority() {
			c.sendCh <- ev
			return true
		}
		select {
		case c.sendCh <- old:
		default:
		}
	case <-time.After(timeout):
	}

	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *connection) Recv() <-chan model.Eventer { return c.sendCh }

// IsAlive reports whether the connection's context has not been cancelled,
// i.e. neither Close nor the transport's own teardown has fired yet.
func (c *connection) IsAlive() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
		return true
	}
}

// Close tears the connection down exactly once and recycles its buffer.
func (c *connection) Close() {
	c.closeOnce.Do(func() {
		c.cancelFn()
		if c.sendCh != nil {
			close(c.sendCh)
		}
		c.sendCh = nil
		connPool.Put(c)
	})
}
