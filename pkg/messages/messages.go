// Package messages defines the JSON messages exchanged between sync clients and the server.
// Every message carries a "type" discriminator; decode the envelope first and then the concrete
// struct.
package messages

import (
	"encoding/json"
	"fmt"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/patch"
)

type Type string

const (
	TypeError    Type = "error"
	TypeState    Type = "state"
	TypeJoin     Type = "join"
	TypeLeave    Type = "leave"
	TypeReject   Type = "reject"
	TypeAccept   Type = "accept"
	TypeChange   Type = "change"
	TypeGetState Type = "getState"
)

type RejectCode string

const (
	RejectOutdated   RejectCode = "outdated"
	RejectBadRequest RejectCode = "badRequest"
	RejectPermission RejectCode = "permission"
	RejectInternal   RejectCode = "internal"
)

// RootVTag is the version tag of a document that has never been written.
const RootVTag = "ROOT"

// Envelope is used for detecting the type of an incoming message.
type Envelope struct {
	Type Type `json:"type"`
}

// Sent from server to client on connect and in reply to getState.
type StateMessage struct {
	Type     Type            `json:"type"`
	VTag     string          `json:"vtag"`
	State    jsonvalue.Value `json:"state,omitzero"`
	Session  string          `json:"session"`
	Sessions []string        `json:"sessions"`
}

// Sent from server to every other client after an accepted change.
type ChangeMessage struct {
	Type    Type        `json:"type"`
	VTag    string      `json:"vtag"`
	User    string      `json:"user"`
	Patches patch.Patch `json:"patches"`
}

type JoinMessage struct {
	Type    Type   `json:"type"`
	Session string `json:"session"`
}

type LeaveMessage struct {
	Type    Type   `json:"type"`
	Session string `json:"session"`
}

// Sent from client to server. Shares the "change" type with ChangeMessage; the direction tells
// them apart.
type RequestChangeMessage struct {
	Type    Type        `json:"type"`
	Req     string      `json:"req"`
	VTag    string      `json:"vtag"`
	Patches patch.Patch `json:"patches"`
}

type AcceptMessage struct {
	Type Type   `json:"type"`
	Req  string `json:"req"`
	VTag string `json:"vtag"`
}

type RejectMessage struct {
	Type   Type       `json:"type"`
	Req    string     `json:"req"`
	Code   RejectCode `json:"code"`
	Reason string     `json:"reason,omitempty"`
}

type GetStateMessage struct {
	Type Type `json:"type"`
}

type ErrorMessage struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

func NewState(vtag string, state jsonvalue.Value, session string, sessions []string) *StateMessage {
	if sessions == nil {
		sessions = []string{}
	}
	return &StateMessage{Type: TypeState, VTag: vtag, State: state, Session: session, Sessions: sessions}
}

func NewChange(vtag, user string, patches patch.Patch) *ChangeMessage {
	return &ChangeMessage{Type: TypeChange, VTag: vtag, User: user, Patches: patches}
}

func NewJoin(session string) *JoinMessage {
	return &JoinMessage{Type: TypeJoin, Session: session}
}

func NewLeave(session string) *LeaveMessage {
	return &LeaveMessage{Type: TypeLeave, Session: session}
}

func NewRequestChange(req, vtag string, patches patch.Patch) *RequestChangeMessage {
	return &RequestChangeMessage{Type: TypeChange, Req: req, VTag: vtag, Patches: patches}
}

func NewAccept(req, vtag string) *AcceptMessage {
	return &AcceptMessage{Type: TypeAccept, Req: req, VTag: vtag}
}

func NewReject(req string, code RejectCode, reason string) *RejectMessage {
	return &RejectMessage{Type: TypeReject, Req: req, Code: code, Reason: reason}
}

func NewGetState() *GetStateMessage {
	return &GetStateMessage{Type: TypeGetState}
}

func NewError(message string) *ErrorMessage {
	return &ErrorMessage{Type: TypeError, Message: message}
}

// DecodeResponse decodes a message sent by the server. The result is one of the pointer types
// above.
func DecodeResponse(raw []byte) (interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message envelope: %w", err)
	}
	var msg interface{}
	switch env.Type {
	case TypeError:
		msg = new(ErrorMessage)
	case TypeState:
		msg = new(StateMessage)
	case TypeJoin:
		msg = new(JoinMessage)
	case TypeLeave:
		msg = new(LeaveMessage)
	case TypeReject:
		msg = new(RejectMessage)
	case TypeAccept:
		msg = new(AcceptMessage)
	case TypeChange:
		msg = new(ChangeMessage)
	default:
		return nil, fmt.Errorf("unknown message type: %q", env.Type)
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s message: %w", env.Type, err)
	}
	return msg, nil
}

// DecodeRequest decodes a message sent by a client: a *RequestChangeMessage or a
// *GetStateMessage.
func DecodeRequest(raw []byte) (interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message envelope: %w", err)
	}
	var msg interface{}
	switch env.Type {
	case TypeChange:
		msg = new(RequestChangeMessage)
	case TypeGetState:
		msg = new(GetStateMessage)
	default:
		return nil, fmt.Errorf("unknown message type: %q", env.Type)
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("failed to decode %s message: %w", env.Type, err)
	}
	return msg, nil
}
