// Package client keeps a local copy of a shared JSON document in sync with the server.
//
// Local edits apply immediately and are sent as patches after a short debounce. The server
// accepts a change only against its current vtag; a client that loses that race does nothing
// and waits for the winner's broadcast, which is merged into its local state with diff3 before
// the remaining edits are sent again.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/astromechza/collabodux-go/pkg/diff3"
	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/messages"
)

const DefaultBufferTime = 40 * time.Millisecond

// Transport delivers request messages to the server. Every message the server sends back,
// including the answers to change requests, must be passed to Client.HandleMessage in the order
// it arrived.
type Transport interface {
	Send(ctx context.Context, msg interface{}) error
}

// EditMetadata describes a local edit for undo grouping.
type EditMetadata struct {
	Type string
	// Merge is the number of consecutive edits of the same Type folded into one undo step.
	Merge int
}

// MergeEdit is the default grouping predicate: an edit joins the last undo group when the types
// match and the group is not yet full.
func MergeEdit(last *UndoGroup[EditMetadata], meta EditMetadata) bool {
	return last != nil && last.Metadata.Type == meta.Type && last.Count < meta.Merge
}

type Options struct {
	Normalizer Normalizer
	// Handler customises the merge of remote changes and undo steps.
	Handler *diff3.Handler
	// BufferTime is the debounce between a local edit and sending it. Defaults to
	// DefaultBufferTime.
	BufferTime time.Duration
	MergeEdit  func(last *UndoGroup[EditMetadata], meta EditMetadata) bool
	// OnError receives errors raised outside of a caller's goroutine, such as a failure to send
	// a change request or the transport closing with an error.
	OnError func(err error)
}

type inflightRequest struct {
	req  string
	vtag string
	sent jsonvalue.Value
}

type Client struct {
	transport  Transport
	bufferTime time.Duration
	mergeEdit  func(last *UndoGroup[EditMetadata], meta EditMetadata) bool
	onError    func(err error)

	ctx    context.Context
	cancel context.CancelFunc

	readyCh  chan struct{}
	closedCh chan struct{}

	sessions         *SessionManager
	localSubscribers SubscriberChannel[jsonvalue.Value]

	mu       sync.Mutex
	state    *PatchStateManager
	undo     *UndoManager[EditMetadata]
	ready    bool
	closed   bool
	timer    *time.Timer
	inflight *inflightRequest

	notifying     bool
	notifyPending bool
}

func New(transport Transport, opts Options) (*Client, error) {
	merger := Diff3Merger(opts.Handler)
	state, err := NewPatchStateManager(opts.Normalizer, merger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise state: %w", err)
	}
	c := &Client{
		transport:  transport,
		bufferTime: opts.BufferTime,
		mergeEdit:  opts.MergeEdit,
		onError:    opts.OnError,
		readyCh:    make(chan struct{}),
		closedCh:   make(chan struct{}),
		sessions:   NewSessionManager(),
		state:      state,
		undo:       NewUndoManager[EditMetadata](merger),
	}
	if c.bufferTime <= 0 {
		c.bufferTime = DefaultBufferTime
	}
	if c.mergeEdit == nil {
		c.mergeEdit = MergeEdit
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// LocalState returns the current local document, or ErrNotReady before the first snapshot.
func (c *Client) LocalState() (jsonvalue.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return jsonvalue.Undefined, ErrNotReady
	}
	return c.state.Local(), nil
}

func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// WaitReady blocks until the first snapshot arrives, the client closes, or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.readyCh:
		return nil
	case <-c.closedCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.closedCh
}

func (c *Client) VTag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.VTag()
}

func (c *Client) Session() string {
	return c.sessions.Session()
}

func (c *Client) Sessions() []string {
	return c.sessions.Sessions()
}

// SubscribeLocalState calls fn with the current local state and then after every change.
func (c *Client) SubscribeLocalState(fn func(jsonvalue.Value)) func() error {
	c.mu.Lock()
	local := c.state.Local()
	c.mu.Unlock()
	fn(local)
	return c.localSubscribers.SubscribeFunc(fn)
}

func (c *Client) SubscribeSessions(fn func(SessionData)) func() error {
	return c.sessions.Subscribe(fn)
}

// SetLocalState replaces the local document. A non-nil meta makes the edit undoable.
func (c *Client) SetLocalState(next jsonvalue.Value, meta *EditMetadata) error {
	c.mu.Lock()
	if err := c.checkLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	changed := c.setLocalLocked(next, meta)
	c.mu.Unlock()

	if changed {
		c.publishLocal()
	}
	return nil
}

func (c *Client) Undo() error {
	return c.replay((*UndoManager[EditMetadata]).Undo)
}

func (c *Client) Redo() error {
	return c.replay((*UndoManager[EditMetadata]).Redo)
}

func (c *Client) replay(step func(*UndoManager[EditMetadata], jsonvalue.Value) (jsonvalue.Value, error)) error {
	c.mu.Lock()
	if err := c.checkLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	next, err := step(c.undo, c.state.Local())
	if err != nil {
		c.mu.Unlock()
		return err
	}
	changed := c.setLocalLocked(next, nil)
	c.mu.Unlock()

	if changed {
		c.publishLocal()
	}
	return nil
}

func (c *Client) HasUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.undo.HasUndo()
}

func (c *Client) HasRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.undo.HasRedo()
}

func (c *Client) checkLocked() error {
	if c.closed {
		return ErrClosed
	}
	if !c.ready {
		return ErrNotReady
	}
	return nil
}

func (c *Client) setLocalLocked(next jsonvalue.Value, meta *EditMetadata) bool {
	prior := c.state.Local()
	if !c.state.SetLocal(next) {
		return false
	}
	if meta != nil {
		last, _ := c.undo.NextUndo()
		c.undo.TrackEdit(prior, next, *meta, c.mergeEdit(last, *meta))
	}
	c.armLocked()
	return true
}

// armLocked starts the debounce timer unless it is running or a request is in flight. Edits
// made in the meantime are picked up by the next send.
func (c *Client) armLocked() {
	if c.closed || !c.ready || c.timer != nil || c.inflight != nil {
		return
	}
	if !c.state.HasPendingChanges() {
		return
	}
	c.timer = time.AfterFunc(c.bufferTime, c.sendPendingChanges)
}

func (c *Client) sendPendingChanges() {
	c.mu.Lock()
	c.timer = nil
	if c.closed || c.inflight != nil {
		c.mu.Unlock()
		return
	}
	patches, err := c.state.LocalPatches()
	if err != nil {
		c.mu.Unlock()
		c.reportError(fmt.Errorf("failed to compute local patches: %w", err))
		return
	}
	if len(patches) == 0 {
		c.mu.Unlock()
		return
	}
	req := &inflightRequest{req: ulid.Make().String(), vtag: c.state.VTag(), sent: c.state.Local()}
	c.inflight = req
	c.mu.Unlock()

	slog.Debug("requesting change", "req", req.req, "vtag", req.vtag, "ops", len(patches))
	if err := c.transport.Send(c.ctx, messages.NewRequestChange(req.req, req.vtag, patches)); err != nil {
		c.mu.Lock()
		if c.inflight == req {
			c.inflight = nil
		}
		c.mu.Unlock()
		c.reportError(fmt.Errorf("failed to send change request: %w", err))
	}
}

// HandleMessage processes one message from the server.
func (c *Client) HandleMessage(msg interface{}) error {
	switch m := msg.(type) {
	case *messages.StateMessage:
		return c.onState(m)
	case *messages.ChangeMessage:
		return c.onChange(m)
	case *messages.AcceptMessage:
		return c.onAccept(m)
	case *messages.RejectMessage:
		return c.onReject(m)
	case *messages.JoinMessage:
		c.sessions.AddSession(m.Session)
	case *messages.LeaveMessage:
		c.sessions.RemoveSession(m.Session)
	case *messages.ErrorMessage:
		slog.Error("server reported error", "message", m.Message)
		return &ServerError{Message: m.Message}
	default:
		slog.Warn("unexpected message type", "type", fmt.Sprintf("%T", msg))
	}
	return nil
}

func (c *Client) onState(m *messages.StateMessage) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	changed, err := c.state.MergeRemote(m.State, m.VTag)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to merge state %s: %w", m.VTag, err)
	}
	if !c.ready {
		c.ready = true
		close(c.readyCh)
		slog.Info("client ready", "vtag", m.VTag, "session", m.Session)
	}
	c.armLocked()
	c.mu.Unlock()

	c.sessions.SetSessions(m.Session, m.Sessions)
	if changed {
		c.publishLocal()
	}
	return nil
}

func (c *Client) onChange(m *messages.ChangeMessage) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.ready {
		c.mu.Unlock()
		slog.Debug("ignoring change before first snapshot", "vtag", m.VTag)
		return nil
	}
	changed, err := c.state.PatchRemote(m.Patches, m.VTag)
	if err != nil {
		c.mu.Unlock()
		if !errors.Is(err, diff3.ErrConflict) {
			// the remote copy can no longer be trusted, ask for a fresh one
			if serr := c.transport.Send(c.ctx, messages.NewGetState()); serr != nil {
				slog.Warn("failed to request state", "err", serr)
			}
		}
		return fmt.Errorf("failed to apply change %s from %s: %w", m.VTag, m.User, err)
	}
	c.armLocked()
	c.mu.Unlock()

	if changed {
		c.publishLocal()
	}
	return nil
}

// publishLocal delivers the current local state to subscribers. Deliveries never overlap and
// the last one always carries the latest state; a call made while another goroutine is
// delivering is folded into that goroutine's next round.
func (c *Client) publishLocal() {
	c.mu.Lock()
	c.notifyPending = true
	if c.notifying {
		c.mu.Unlock()
		return
	}
	c.notifying = true
	for c.notifyPending {
		c.notifyPending = false
		local := c.state.Local()
		c.mu.Unlock()
		c.localSubscribers.Send(local)
		c.mu.Lock()
	}
	c.notifying = false
	c.mu.Unlock()
}

func (c *Client) takeInflightLocked(req string) *inflightRequest {
	if c.inflight == nil || c.inflight.req != req {
		return nil
	}
	out := c.inflight
	c.inflight = nil
	return out
}

func (c *Client) onAccept(m *messages.AcceptMessage) error {
	c.mu.Lock()
	inflight := c.takeInflightLocked(m.Req)
	if inflight == nil {
		c.mu.Unlock()
		slog.Warn("accept for unknown request", "req", m.Req)
		return nil
	}
	c.state.AcceptLocalChanges(inflight.sent, m.VTag)
	c.armLocked()
	c.mu.Unlock()

	slog.Debug("change accepted", "req", m.Req, "vtag", m.VTag)
	c.publishLocal()
	return nil
}

func (c *Client) onReject(m *messages.RejectMessage) error {
	c.mu.Lock()
	inflight := c.takeInflightLocked(m.Req)
	if inflight == nil {
		c.mu.Unlock()
		slog.Warn("reject for unknown request", "req", m.Req)
		return nil
	}
	if m.Code == messages.RejectOutdated {
		// A broadcast that already moved us past the rejected vtag will not come again, so
		// pending edits go out now. Otherwise they wait for that broadcast.
		if c.state.VTag() != inflight.vtag {
			c.armLocked()
		}
		c.mu.Unlock()
		slog.Debug("change rejected", "req", m.Req, "code", m.Code)
		return nil
	}
	c.mu.Unlock()
	err := &RejectError{Code: m.Code, Reason: m.Reason}
	c.reportError(err)
	return err
}

// HandleClose is called by the transport when the connection ends. A non-nil err is reported
// through OnError.
func (c *Client) HandleClose(err error) {
	if c.shutdown() && err != nil {
		c.reportError(fmt.Errorf("connection lost: %w", err))
	}
}

func (c *Client) Close() error {
	c.shutdown()
	return nil
}

func (c *Client) shutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.inflight = nil
	c.cancel()
	close(c.closedCh)
	return true
}

func (c *Client) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
		return
	}
	slog.Error("sync client error", "err", err)
}
