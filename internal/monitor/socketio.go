package monitor

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DialConfig configures the socket.io connection.
type DialConfig struct {
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// socketEmitter emits over a connected socket.io client.
type socketEmitter struct {
	emit   func(event string, payload map[string]any)
	close  func()
	closed atomic.Bool
}

func (s *socketEmitter) Emit(event string, payload map[string]any) error {
	if s.closed.Load() {
		return fmt.Errorf("monitor: emit %s on closed socket", event)
	}
	s.emit(event, payload)
	return nil
}

func (s *socketEmitter) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.close()
	}
	return nil
}

// Dial connects to the socket.io server at rawURL over websocket and returns
// an emitter once the namespace is connected.
func Dial(ctx context.Context, rawURL string, cfg DialConfig) (Emitter, error) {
	ctx = ctxlog.With(ctx, "component", "monitor", "url", rawURL, "namespace", cfg.Namespace)
	logger := ctxlog.FromContext(ctx)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse monitor URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("monitor URL %q must be absolute", rawURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Monitor connected.", "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("monitor connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("monitor connection failed: %w", e)
			}
		}
		select {
		case connected <- err:
		default:
		}
	})
	io.Connect()

	em := &socketEmitter{
		emit: func(event string, payload map[string]any) { io.Emit(event, payload) },
		close: func() {
			logger.Debug("Disconnecting monitor client")
			io.Disconnect()
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-dialCtx.Done():
		em.Close()
		return nil, fmt.Errorf("timed out while waiting for monitor connection: %w", dialCtx.Err())
	case err := <-connected:
		if err != nil {
			em.Close()
			return nil, err
		}
		return em, nil
	}
}
