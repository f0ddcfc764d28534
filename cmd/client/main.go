package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/astromechza/collabodux-go/pkg/client"
	"github.com/astromechza/collabodux-go/pkg/config"
	"github.com/astromechza/collabodux-go/pkg/diff3"
	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/logging"
	"github.com/astromechza/collabodux-go/pkg/transport"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// mergeCounter adds up concurrent increments of a number and merges strings by text.
func mergeCounter(orig, left, right jsonvalue.Value, path diff3.Path) (jsonvalue.Value, error) {
	if orig.Kind() == jsonvalue.KindNumber && left.Kind() == jsonvalue.KindNumber && right.Kind() == jsonvalue.KindNumber {
		return jsonvalue.Number(left.AsNumber() + right.AsNumber() - orig.AsNumber()), nil
	}
	return diff3.MergeText(orig, left, right, path)
}

func mainInner() error {
	configVar := flag.String("config", "", "the yaml config file to read")
	urlVar := flag.String("url", "", "the sync url to connect to, overrides the config")
	flag.Parse()

	cfg := config.Default()
	if *configVar != "" {
		var err error
		if cfg, err = config.Read(*configVar); err != nil {
			return err
		}
	}
	if *urlVar != "" {
		cfg.Client.URL = *urlVar
		if err := cfg.Client.Validate(); err != nil {
			return err
		}
	}
	logging.Init(cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := transport.Dial(ctx, cfg.Client.URL)
	if err != nil {
		return err
	}
	c, err := client.New(conn, client.Options{
		Handler:    &diff3.Handler{HandleMerge: mergeCounter},
		BufferTime: cfg.Client.BufferTime(),
		OnError: func(err error) {
			slog.Error("sync failed", "err", err)
		},
	})
	if err != nil {
		return err
	}

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := transport.Serve(ctx, conn, c); err != nil {
			slog.Error("connection failed", "err", err)
		}
		cancel()
	}()

	if err := c.WaitReady(ctx); err != nil {
		return fmt.Errorf("failed to wait for initial state: %w", err)
	}
	slog.Info("established base doc", "vtag", c.VTag(), "session", c.Session())

	unsubscribe := c.SubscribeSessions(func(data client.SessionData) {
		slog.Info("sessions", "session", data.Session, "sessions", data.Sessions)
	})
	defer unsubscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		incrementRandomlyContinuously(ctx, c, cfg.Client.EditInterval())
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-ctx.Done():
		slog.Info("connection closed")
	}
	cancel()

	wg.Wait()

	if local, err := c.LocalState(); err == nil {
		slog.Info("final state", "vtag", c.VTag(), "state", local.String())
	}
	return c.Close()
}

func counterOf(doc jsonvalue.Value) float64 {
	v, _ := doc.Get("counter")
	return v.AsNumber()
}

func incrementRandomlyContinuously(ctx context.Context, c *client.Client, interval time.Duration) {
	meta := &client.EditMetadata{Type: "increment", Merge: 5}
	for {
		t := time.NewTimer(interval + interval*time.Duration(rand.Intn(5)))
		select {
		case <-t.C:
			if rand.Intn(10) == 0 && c.HasUndo() {
				if err := c.Undo(); err != nil {
					slog.Error("failed to undo", "err", err)
				} else {
					local, _ := c.LocalState()
					slog.Info("undone", "vtag", c.VTag(), "value", counterOf(local))
				}
				continue
			}
			local, err := c.LocalState()
			if err != nil {
				slog.Error("failed to read state", "err", err)
				continue
			}
			next := local.With("counter", jsonvalue.Number(counterOf(local)+1))
			if err := c.SetLocalState(next, meta); err != nil {
				slog.Error("failed to increment counter", "err", err)
			} else {
				slog.Info("incremented", "vtag", c.VTag(), "value", counterOf(next))
			}
		case <-ctx.Done():
			t.Stop()
			slog.Info("stopping scheduled increment")
			return
		}
	}
}
