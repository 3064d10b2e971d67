// Package monitor streams task lifecycle events to a socket.io endpoint,
// letting an external dashboard watch an experiment as it executes. The
// monitor participates in the task lifecycle as a regular plugin.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/memogrid/internal/config"
	"github.com/vk/memogrid/internal/ctxlog"
	"github.com/vk/memogrid/internal/task"
)

// DefaultTimeout bounds the initial connection handshake.
const DefaultTimeout = 5 * time.Second

// Monitor forwards task lifecycle events to a socket.io endpoint. A
// monitor that is not required and cannot connect degrades to no-ops, so
// an unreachable dashboard never blocks an experiment.
type Monitor struct {
	task.Hooks

	cfg       *config.MonitorConfig
	io        *socket.Socket
	connected atomic.Bool
}

// New returns an unconnected monitor for the given configuration.
func New(cfg *config.MonitorConfig) *Monitor {
	return &Monitor{cfg: cfg}
}

// Name implements task.Plugin.
func (*Monitor) Name() string { return "monitor" }

// Connect dials the endpoint and waits for the handshake. A failed
// handshake is fatal when the monitor is required; otherwise the monitor
// logs, disconnects and disables itself.
func (m *Monitor) Connect(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("monitor", m.cfg.URL)

	parsedURL, err := url.Parse(m.cfg.URL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("monitor: invalid URL %q", m.cfg.URL)
	}

	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	namespace := m.cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	handshake := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		m.connected.Store(true)
		logger.Info("🩺 Monitor connected", "namespace", namespace, "sid", io.Id())
		select {
		case handshake <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case handshake <- err:
		default:
		}
	})

	io.Connect()
	m.io = io

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case err := <-handshake:
		if err != nil {
			return m.degrade(logger, err)
		}
		return nil
	case <-connectCtx.Done():
		return m.degrade(logger, fmt.Errorf("timed out while waiting for initial connection"))
	}
}

// degrade turns a handshake failure into either a fatal error or a
// disabled monitor, depending on the required flag.
func (m *Monitor) degrade(logger *slog.Logger, err error) error {
	m.Close()
	if m.cfg.Required {
		return fmt.Errorf("monitor: %w", err)
	}
	logger.Warn("Monitor unavailable, events disabled.", "error", err)
	return nil
}

// Close disconnects from the endpoint.
func (m *Monitor) Close() {
	m.connected.Store(false)
	if m.io != nil {
		m.io.Disconnect()
	}
}

// Prepare implements task.Plugin.
func (m *Monitor) Prepare(ctx context.Context, t *task.Task) error {
	m.emit("task:prepare", payloadFor(t))
	return nil
}

// PreRun implements task.Plugin.
func (m *Monitor) PreRun(ctx context.Context, t *task.Task) error {
	m.emit("task:run", payloadFor(t))
	return nil
}

// Load implements task.Plugin.
func (m *Monitor) Load(ctx context.Context, t *task.Task) error {
	m.emit("task:load", payloadFor(t))
	return nil
}

// Finish implements task.Plugin.
func (m *Monitor) Finish(ctx context.Context, t *task.Task) error {
	payload := payloadFor(t)
	payload["loaded"] = t.WasLoaded()
	payload["duration_ms"] = t.FinishedAt.Sub(t.StartedAt).Milliseconds()
	payload["results"] = t.Results.Names()
	m.emit("task:finish", payload)
	return nil
}

// ReportFailure emits a failure event for a task. Failures abort the
// lifecycle before any hook could observe them, so the executor reports
// them through this side channel.
func (m *Monitor) ReportFailure(t *task.Task, err error) {
	payload := payloadFor(t)
	payload["error"] = err.Error()
	m.emit("task:fail", payload)
}

// ReportStart emits the experiment-level start event.
func (m *Monitor) ReportStart(taskCount int) {
	m.emit("experiment:start", map[string]any{
		"tasks": taskCount,
		"ts":    timestamp(),
	})
}

// ReportDone emits the experiment-level completion event.
func (m *Monitor) ReportDone(err error) {
	payload := map[string]any{
		"ok": err == nil,
		"ts": timestamp(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	m.emit("experiment:finish", payload)
}

func (m *Monitor) emit(name string, payload map[string]any) {
	if !m.connected.Load() || m.io == nil {
		return
	}
	m.io.Emit(m.event(name), payload)
}

func (m *Monitor) event(name string) string {
	return m.cfg.EventPrefix + name
}

func payloadFor(t *task.Task) map[string]any {
	return map[string]any{
		"task":   t.Addr.String(),
		"app":    t.App,
		"digest": t.Digest,
		"run_id": t.RunID.String(),
		"ts":     timestamp(),
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
