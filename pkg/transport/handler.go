package transport

import (
	"context"

	"github.com/astromechza/collabodux-go/pkg/messages"
)

// Handler receives decoded server messages, in arrival order, and the end of the connection.
type Handler interface {
	HandleMessage(msg interface{}) error
	HandleClose(err error)
}

// Serve runs conn until it ends, feeding every server message to h. h.HandleClose is always
// called before Serve returns.
func Serve(ctx context.Context, conn *Conn, h Handler) error {
	err := conn.Run(ctx, func(raw []byte) error {
		msg, err := messages.DecodeResponse(raw)
		if err != nil {
			return err
		}
		return h.HandleMessage(msg)
	})
	h.HandleClose(err)
	return err
}
