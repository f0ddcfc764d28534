package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/astromechza/collabodux-go/pkg/config"
	"github.com/astromechza/collabodux-go/pkg/jsonvalue"
	"github.com/astromechza/collabodux-go/pkg/logging"
	"github.com/astromechza/collabodux-go/pkg/server"
	"github.com/astromechza/collabodux-go/pkg/viz"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Read(path)
}

func loadSeed(path string) (jsonvalue.Value, error) {
	if path == "" {
		return jsonvalue.Undefined, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to read seed file: %w", err)
	}
	seed, err := jsonvalue.Parse(raw)
	if err != nil {
		return jsonvalue.Undefined, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return seed, nil
}

func mainInner() error {
	configVar := flag.String("config", "", "the yaml config file to read")
	addrVar := flag.String("addr", "", "the address to listen on, overrides the config")
	seedVar := flag.String("seed", "", "a json file holding the initial document, overrides the config")
	flag.Parse()

	cfg, err := loadConfig(*configVar)
	if err != nil {
		return err
	}
	if *addrVar != "" {
		cfg.Server.Addr = *addrVar
	}
	if *seedVar != "" {
		cfg.Server.SeedFile = *seedVar
	}
	logging.Init(cfg.Log.Format)

	seed, err := loadSeed(cfg.Server.SeedFile)
	if err != nil {
		return err
	}
	authority := server.NewAuthority(seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg := new(sync.WaitGroup)

	// sync connections are hijacked, so they only see shutdown through the base context
	httpServer := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     server.NewRouter(authority),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
		}
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("Signal caught", "sig", sig)
	cancel()
	_ = httpServer.Close()

	wg.Wait()

	state, vtag := authority.Snapshot()
	slog.Info("final state", "vtag", vtag, "state", state.String())
	if cfg.Server.RenderOnExit {
		if svgPath, err := viz.RenderToTemp(state); err != nil {
			slog.Error("failed to render", "err", err)
		} else {
			slog.Info("rendered", "vtag", vtag, "path", "file://"+svgPath)
		}
	}
	return nil
}
