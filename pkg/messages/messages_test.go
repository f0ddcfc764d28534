package messages

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/patch"
)

func TestEncodeWireShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  interface{}
		want string
	}{
		{
			name: "state",
			msg:  NewState("v1", jsonvalue.MustParse(`{"a":1}`), "s1", []string{"s1", "s2"}),
			want: `{"type":"state","vtag":"v1","state":{"a":1},"session":"s1","sessions":["s1","s2"]}`,
		},
		{
			name: "state without document",
			msg:  NewState(RootVTag, jsonvalue.Undefined, "s1", nil),
			want: `{"type":"state","vtag":"ROOT","session":"s1","sessions":[]}`,
		},
		{
			name: "request change",
			msg:  NewRequestChange("r1", "v1", patch.Patch{{Op: patch.OpRemove, Path: "/a"}}),
			want: `{"type":"change","req":"r1","vtag":"v1","patches":[{"op":"remove","path":"/a"}]}`,
		},
		{
			name: "reject without reason",
			msg:  NewReject("r1", RejectOutdated, ""),
			want: `{"type":"reject","req":"r1","code":"outdated"}`,
		},
		{
			name: "reject with reason",
			msg:  NewReject("r1", RejectBadRequest, "nope"),
			want: `{"type":"reject","req":"r1","code":"badRequest","reason":"nope"}`,
		},
		{name: "accept", msg: NewAccept("r1", "v2"), want: `{"type":"accept","req":"r1","vtag":"v2"}`},
		{name: "join", msg: NewJoin("s2"), want: `{"type":"join","session":"s2"}`},
		{name: "get state", msg: NewGetState(), want: `{"type":"getState"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := json.Marshal(tc.msg)
			assert.Equal(t, nil, err)
			assert.Equal(t, tc.want, string(buf))
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	msg, err := DecodeResponse([]byte(`{"type":"change","vtag":"v2","user":"s1","patches":[{"op":"add","path":"/x","value":null}]}`))
	assert.Equal(t, nil, err)
	change, ok := msg.(*ChangeMessage)
	assert.Equal(t, true, ok)
	assert.Equal(t, "v2", change.VTag)
	assert.Equal(t, "s1", change.User)
	assert.Equal(t, 1, len(change.Patches))
	assert.Equal(t, jsonvalue.KindNull, change.Patches[0].Value.Kind())

	msg, err = DecodeResponse([]byte(`{"type":"state","vtag":"ROOT","session":"s","sessions":["s"]}`))
	assert.Equal(t, nil, err)
	state := msg.(*StateMessage)
	assert.Equal(t, true, state.State.IsUndefined())
	assert.Equal(t, []string{"s"}, state.Sessions)

	_, err = DecodeResponse([]byte(`{"type":"getState"}`))
	assert.NotEqual(t, nil, err)
	_, err = DecodeResponse([]byte(`not json`))
	assert.NotEqual(t, nil, err)
}

func TestDecodeRequest(t *testing.T) {
	msg, err := DecodeRequest([]byte(`{"type":"change","req":"r","vtag":"ROOT","patches":[]}`))
	assert.Equal(t, nil, err)
	req := msg.(*RequestChangeMessage)
	assert.Equal(t, "r", req.Req)
	assert.Equal(t, RootVTag, req.VTag)

	msg, err = DecodeRequest([]byte(`{"type":"getState"}`))
	assert.Equal(t, nil, err)
	_, ok := msg.(*GetStateMessage)
	assert.Equal(t, true, ok)

	_, err = DecodeRequest([]byte(`{"type":"accept","req":"r","vtag":"v"}`))
	assert.NotEqual(t, nil, err)
}
