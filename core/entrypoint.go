package core

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/encodeous/dvsim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

var DebugAddr = "127.0.0.1:6060"

func setupDebugging() {
	if state.DBG_debug {
		go func() {
			log.Println(http.ListenAndServe(DebugAddr, nil))
		}()
	}
}

// NewLogger writes coloured logs to console, and plain text logs to logPath if it is not empty.
// The returned closer releases the log file.
func NewLogger(console io.Writer, logLevel slog.Level, logPath string, prefix string) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer = io.NopCloser(nil)
	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Bootstrap prepares the process-wide pieces every command shares, and returns a context cancelled on SIGINT/SIGTERM
func Bootstrap(logLevel slog.Level, logPath string) (context.Context, *slog.Logger, func(), error) {
	setupDebugging()

	logger, closer, err := NewLogger(os.Stderr, logLevel, logPath, "dvsim")
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
			return
		}
	}()

	stop := func() {
		signal.Stop(c)
		cancel(context.Canceled)
		if err := closer.Close(); err != nil {
			logger.Error("error occurred while closing log file", "error", err)
		}
	}
	return ctx, logger, stop, nil
}
