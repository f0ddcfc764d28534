// Package server holds the authoritative copy of the shared document and serializes every
// change request against it.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/messages"
	"github.com/astromechza/collabodux-go/pkg/patch"
)

var ErrUnknownSession = errors.New("unknown session")

// Peer is one connected client. Enqueue must not block; transport.Conn satisfies it.
type Peer interface {
	Enqueue(msg interface{}) error
}

// Authority is the single writer of the document. A change is accepted only when it was made
// against the current vtag, and every accepted change mints a new vtag.
type Authority struct {
	mu    sync.Mutex
	state jsonvalue.Value
	vtag  string
	peers map[string]Peer
}

func randomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewAuthority starts from seed, which may be Undefined.
func NewAuthority(seed jsonvalue.Value) *Authority {
	return &Authority{state: seed, vtag: messages.RootVTag, peers: make(map[string]Peer)}
}

// Snapshot returns the current document and its vtag.
func (a *Authority) Snapshot() (jsonvalue.Value, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.vtag
}

func (a *Authority) Sessions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionsLocked()
}

func (a *Authority) sessionsLocked() []string {
	out := make([]string, 0, len(a.peers))
	for session := range a.peers {
		out = append(out, session)
	}
	slices.Sort(out)
	return out
}

// Connect registers peer under a new session, sends it the current state and announces it to
// everyone else.
func (a *Authority) Connect(peer Peer) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	session := randomID()
	a.peers[session] = peer
	slog.Info("session connected", "session", session, "sessions", len(a.peers))
	a.sendLocked(session, peer, messages.NewState(a.vtag, a.state, session, a.sessionsLocked()))
	a.broadcastLocked(session, messages.NewJoin(session))
	return session
}

// Disconnect removes the session and announces that it left.
func (a *Authority) Disconnect(session string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.peers[session]; !ok {
		return
	}
	delete(a.peers, session)
	slog.Info("session disconnected", "session", session, "sessions", len(a.peers))
	a.broadcastLocked(session, messages.NewLeave(session))
}

// HandleMessage processes one raw request from session. A returned error means the message was
// not understood; the peer has been sent an error message and should be disconnected.
func (a *Authority) HandleMessage(session string, raw []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	peer, ok := a.peers[session]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	slog.Debug("received", "session", session, "message", string(raw))

	msg, err := messages.DecodeRequest(raw)
	if err != nil {
		a.sendLocked(session, peer, messages.NewError(err.Error()))
		return err
	}
	switch m := msg.(type) {
	case *messages.RequestChangeMessage:
		a.changeLocked(session, peer, m)
	case *messages.GetStateMessage:
		a.sendLocked(session, peer, messages.NewState(a.vtag, a.state, session, a.sessionsLocked()))
	}
	return nil
}

func (a *Authority) changeLocked(session string, peer Peer, m *messages.RequestChangeMessage) {
	if m.VTag != a.vtag {
		slog.Debug("rejecting outdated change", "session", session, "req", m.Req, "vtag", m.VTag, "current", a.vtag)
		a.sendLocked(session, peer, messages.NewReject(m.Req, messages.RejectOutdated, ""))
		return
	}
	next, err := patch.Apply(a.state, m.Patches)
	if err == nil && next.IsUndefined() {
		err = errors.New("patch results in undefined")
	}
	if err != nil {
		slog.Warn("rejecting invalid change", "session", session, "req", m.Req, "err", err)
		a.sendLocked(session, peer, messages.NewReject(m.Req, messages.RejectBadRequest, err.Error()))
		return
	}
	a.state = next
	a.vtag = randomID()
	slog.Info("accepted change", "session", session, "req", m.Req, "vtag", a.vtag, "ops", len(m.Patches))
	a.sendLocked(session, peer, messages.NewAccept(m.Req, a.vtag))
	a.broadcastLocked(session, messages.NewChange(a.vtag, session, m.Patches))
}

func (a *Authority) sendLocked(session string, peer Peer, msg interface{}) {
	if err := peer.Enqueue(msg); err != nil {
		slog.Warn("failed to send", "session", session, "err", err)
	}
}

func (a *Authority) broadcastLocked(skip string, msg interface{}) {
	for session, peer := range a.peers {
		if session != skip {
			a.sendLocked(session, peer, msg)
		}
	}
}
