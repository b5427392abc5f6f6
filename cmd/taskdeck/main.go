package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"taskdeck/internal/authstate"
	"taskdeck/internal/chatrouter"
	"taskdeck/internal/command"
	"taskdeck/internal/config"
	"taskdeck/internal/db"
	"taskdeck/internal/gateway"
	"taskdeck/internal/global"
	"taskdeck/internal/localapi"
	"taskdeck/internal/logging"
	"taskdeck/internal/session"
	"taskdeck/internal/taskstate"
	"taskdeck/internal/transcript"
)

var version = "dev"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "taskdeck:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	newLog := func(component string) *slog.Logger {
		return logging.NewLogger(logging.Options{
			Level:     cfg.LogLevel,
			Writer:    os.Stderr,
			Component: component,
		})
	}
	log := newLog("main")
	log.Debug("starting", "version", version)

	prefs, err := global.NewPrefsStore(cfg.DataDir).LoadOrInit()
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}
	backendURL := cfg.BackendBaseURL
	if prefs.BackendURL != "" && os.Getenv("TASKDECK_BACKEND_URL") == "" {
		backendURL = prefs.BackendURL
	}
	gdb, err := db.Open(filepath.Join(cfg.DataDir, "taskdeck.db"))
	if err != nil {
		return fmt.Errorf("open local db: %w", err)
	}

	sessions, err := session.NewStore(gdb)
	if err != nil {
		return err
	}
	gw := gateway.NewClient(backendURL, sessions, newLog("gateway"))

	auth := authstate.NewMachine(gw, sessions, newLog("authstate"))
	tasks := taskstate.NewMachine(gw, func() (int64, bool) {
		st := auth.Snapshot()
		if !st.IsAuthenticated() {
			return 0, false
		}
		return st.CurrentUser.ID, true
	})
	tasks.SetFilter(taskstate.Filter(prefs.DefaultFilter))

	transcripts, err := transcript.NewStore(gdb)
	if err != nil {
		return err
	}
	router := chatrouter.NewRouter(gw, newLog("chatrouter"))
	chat := transcript.NewRecorder(router, transcript.NewLog(), transcripts, prefs.Chat.KeepTranscripts, newLog("transcript"))
	auth.OnLogout(func() {
		if err := chat.Clear(); err != nil {
			log.Warn("failed to clear chat transcripts on logout", "error", err)
		}
	})

	app := command.BuildApp(command.Deps{
		Auth:  auth,
		Tasks: tasks,
		Chat:  chat,
		Serve: func(serveCtx context.Context) error {
			// Re-read at serve time so env overrides applied after
			// startup are picked up through the cached snapshot.
			serveCfg := *config.GetConfig()
			if prefs.LocalPort != 0 && os.Getenv("TASKDECK_LOCAL_PORT") == "" {
				serveCfg.LocalPort = prefs.LocalPort
			}
			return serveLocalAPI(serveCtx, serveCfg, localapi.Deps{
				Auth:          auth,
				Tasks:         tasks,
				Chat:          chat,
				Probe:         gw,
				Conversations: gw,
				Log:           newLog("localapi"),
			})
		},
		Out: os.Stdout,
	})
	return app.RunContext(ctx, os.Args)
}

// serveLocalAPI runs the local HTTP surface until the context is cancelled,
// then shuts down with a short drain window.
func serveLocalAPI(ctx context.Context, cfg config.Config, deps localapi.Deps) error {
	srv := localapi.NewServer(deps)
	addr := net.JoinHostPort(cfg.LocalHost, strconv.Itoa(cfg.LocalPort))
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		deps.Log.Info("local api listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
