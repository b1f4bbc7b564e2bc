package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/surfdeck/surfdeck/errors"
	"github.com/surfdeck/surfdeck/metric"
	"github.com/surfdeck/surfdeck/pkg/retry"
	"github.com/surfdeck/surfdeck/pkg/worker"
	"github.com/surfdeck/surfdeck/statestore"
)

// DefaultAddress is the host's local plugin socket.
const DefaultAddress = "127.0.0.1:12077"

// Status represents the state of the host connection
type Status int

// Possible connection statuses
const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusPaired
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusPaired:
		return "paired"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Handler processes one inbound message. Handlers run on the dispatch pool,
// never on the read loop, so a slow handler cannot stall the connection. A
// returned error (or a panic) surfaces as a synthetic error event.
type Handler func(ctx context.Context, msg Message) error

// ErrorHandler observes handler failures, panics and protocol violations.
// The triggering message may be nil when the raw line failed to decode.
type ErrorHandler func(msg Message, err error)

// StateDefinition declares one runtime state for bulk creation.
type StateDefinition struct {
	ID          string
	Description string
	Value       string
}

// StateValue pairs a state id with a new value for bulk updates.
type StateValue struct {
	ID    string
	Value string
}

// NotificationOption is one clickable choice on a host notification.
type NotificationOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Client connects a plugin to its host over the local pairing socket. It
// owns the read loop, the dispatch pool and the state store, and exposes the
// outbound operations of the pairing protocol. All methods are safe for
// concurrent use.
type Client struct {
	pluginID  string
	sessionID string

	addr                string
	pollInterval        time.Duration
	dialTimeout         time.Duration
	autoClose           bool
	checkPluginID       bool
	statesOnBroadcast   bool
	implicitStateCreate bool
	workers             int
	queueSize           int

	logger   *slog.Logger
	registry *metric.MetricsRegistry
	limiter  *rate.Limiter

	status atomic.Value // stores Status

	mu     sync.Mutex // lifecycle
	conn   net.Conn
	cancel context.CancelFunc
	runCtx context.Context

	sendMu sync.Mutex // serializes wire writes

	handlersMu    sync.RWMutex
	handlers      map[string][]Handler
	errorHandlers []ErrorHandler

	store *statestore.Store
	pool  *worker.Pool[Message]

	infoMu   sync.RWMutex
	info     Message
	settings map[string]string
}

type storeSender struct {
	c *Client
}

func (s storeSender) Send(payload map[string]any) error {
	return s.c.send(payload)
}

// NewClient creates a client for the given plugin id.
func NewClient(pluginID string, opts ...ClientOption) (*Client, error) {
	if pluginID == "" {
		return nil, errors.WrapUsage(errors.ErrEmptyIdentifier, "Client", "NewClient", "plugin id check")
	}

	c := &Client{
		pluginID:  pluginID,
		sessionID: uuid.NewString(),

		addr:                DefaultAddress,
		pollInterval:        500 * time.Millisecond,
		dialTimeout:         5 * time.Second,
		autoClose:           true,
		checkPluginID:       true,
		statesOnBroadcast:   true,
		implicitStateCreate: true,
		workers:             4,
		queueSize:           256,

		logger:   slog.Default(),
		handlers: make(map[string][]Handler),
		settings: make(map[string]string),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapUsage(err, "Client", "NewClient", "apply option")
		}
	}

	var storeOpts []statestore.Option
	if !c.implicitStateCreate {
		storeOpts = append(storeOpts, statestore.WithoutImplicitCreate())
	}
	if c.registry != nil {
		storeOpts = append(storeOpts, statestore.WithObserver(c.registry.CoreMetrics()))
	}
	c.store = statestore.New(storeSender{c}, storeOpts...)

	c.status.Store(StatusDisconnected)
	c.logger = c.logger.With("plugin", pluginID, "session", c.sessionID)

	return c, nil
}

// PluginID returns the plugin id the client pairs as.
func (c *Client) PluginID() string { return c.pluginID }

// SessionID returns the unique id of this client instance.
func (c *Client) SessionID() string { return c.sessionID }

// Status returns the current connection status.
func (c *Client) Status() Status {
	return c.status.Load().(Status)
}

// IsConnected reports whether the client is paired with the host.
func (c *Client) IsConnected() bool {
	return c.Status() == StatusPaired
}

// On registers a handler for one message kind. Multiple handlers per kind
// run in registration order. KindAny handlers run after kind-specific ones
// for every message.
func (c *Client) On(kind string, h Handler) {
	if h == nil {
		return
	}
	if kind == KindAny {
		c.OnAny(h)
		return
	}
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], h)
}

// OnAny registers a handler that receives every inbound message.
func (c *Client) OnAny(h Handler) {
	if h == nil {
		return
	}
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[KindAny] = append(c.handlers[KindAny], h)
}

// OnError registers an observer for handler failures and protocol errors.
func (c *Client) OnError(h ErrorHandler) {
	if h == nil {
		return
	}
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.errorHandlers = append(c.errorHandlers, h)
}

// Connect dials the host, sends the pairing message and blocks until the
// connection terminates. It returns nil after a clean shutdown (Disconnect,
// or closePlugin with auto-close enabled) and an error when the connection
// fails or the host drops it.
func (c *Client) Connect(ctx context.Context) error {
	if !c.status.CompareAndSwap(StatusDisconnected, StatusConnecting) {
		return errors.WrapUsage(errors.ErrAlreadyConnected, "Client", "Connect", "status check")
	}

	dialer := &net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		c.status.Store(StatusDisconnected)
		return errors.WrapTransport(err, "Client", "Connect", fmt.Sprintf("dial %s", c.addr))
	}

	runCtx, cancel := context.WithCancel(ctx)

	pool := worker.NewPool(c.workers, c.queueSize, c.dispatch, c.poolOptions()...)
	if err := pool.Start(runCtx); err != nil {
		cancel()
		_ = conn.Close()
		c.status.Store(StatusDisconnected)
		return errors.WrapUsage(err, "Client", "Connect", "start dispatch pool")
	}

	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.runCtx = runCtx
	c.pool = pool
	c.mu.Unlock()

	if err := c.send(map[string]any{"type": kindPair, "id": c.pluginID}); err != nil {
		c.teardown(conn, cancel, pool)
		return errors.WrapTransport(err, "Client", "Connect", "send pair")
	}
	c.status.Store(StatusPaired)
	c.recordStatus()
	c.logger.Info("paired with host", "addr", c.addr)

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return c.readLoop(groupCtx, conn)
	})
	err = group.Wait()
	if err != nil {
		// Loop failures surface as an error event in addition to the
		// Connect return value.
		c.emitError(nil, err)
	}

	c.teardown(conn, cancel, pool)
	c.logger.Info("disconnected", "err", err)
	return err
}

// ConnectWithRetry runs Connect under a backoff schedule, so a plugin
// started before its host can wait for the socket to appear and survive
// host restarts. Usage errors are not retried. Returns nil after a clean
// shutdown.
func (c *Client) ConnectWithRetry(ctx context.Context, cfg retry.Config) error {
	return retry.Do(ctx, cfg, func() error {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if errors.IsUsage(err) {
			return retry.NonRetryable(err)
		}
		return err
	})
}

func (c *Client) poolOptions() []worker.Option[Message] {
	opts := []worker.Option[Message]{
		worker.WithPanicHandler(func(msg Message, recovered any) {
			c.emitError(msg, errors.WrapUsage(
				fmt.Errorf("handler panic: %v", recovered),
				"Client", "dispatch", "run handler"))
		}),
	}
	if c.registry != nil {
		opts = append(opts, worker.WithMetricsRegistry[Message](c.registry, "surfdeck_dispatch"))
	}
	return opts
}

func (c *Client) teardown(conn net.Conn, cancel context.CancelFunc, pool *worker.Pool[Message]) {
	c.status.Store(StatusStopping)
	c.recordStatus()
	cancel()
	_ = conn.Close()
	if err := pool.Stop(5 * time.Second); err != nil {
		c.logger.Warn("dispatch pool did not drain", "err", err)
	}

	c.mu.Lock()
	c.conn = nil
	c.cancel = nil
	c.runCtx = nil
	c.pool = nil
	c.mu.Unlock()

	// The host cannot deliver matching hold-ends after the socket closes.
	c.store.ClearHeld()
	c.status.Store(StatusDisconnected)
	c.recordStatus()
}

// Disconnect requests a shutdown of the connection. It is safe to call from
// handlers and from other goroutines, and is a no-op when not connected.
// Connect unblocks shortly after.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	c.status.Store(StatusStopping)
	c.recordStatus()
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
}

// errShutdown signals a requested, clean termination of the read loop.
var errShutdown = stderrors.New("shutdown requested")

func (c *Client) readLoop(ctx context.Context, conn net.Conn) error {
	buf := make([]byte, 4096)
	var pending []byte

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(c.pollInterval)); err != nil {
			if c.Status() == StatusStopping {
				return nil
			}
			return errors.WrapTransport(err, "Client", "readLoop", "set read deadline")
		}

		n, err := conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]
				if dispatchErr := c.handleLine(ctx, line); dispatchErr != nil {
					if stderrors.Is(dispatchErr, errShutdown) {
						return nil
					}
					return dispatchErr
				}
			}
		}

		if err == nil {
			continue
		}
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		if c.Status() == StatusStopping || stderrors.Is(err, net.ErrClosed) {
			return nil
		}
		if stderrors.Is(err, io.EOF) {
			return errors.WrapTransport(errors.ErrConnectionClosed, "Client", "readLoop", "read")
		}
		return errors.WrapTransport(err, "Client", "readLoop", "read")
	}
}

// handleLine decodes one wire line and routes it. Connection bookkeeping
// (pairing info, hold tracking, broadcast resend) happens here in arrival
// order; handler execution is handed to the pool.
func (c *Client) handleLine(ctx context.Context, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	msg, err := ParseMessage(line)
	if err != nil {
		c.emitError(nil, errors.WrapProtocol(
			fmt.Errorf("%w: %v", errors.ErrMalformedMessage, err),
			"Client", "handleLine", "decode"))
		return nil
	}

	kind := msg.Type()
	if kind == "" {
		c.emitError(msg, errors.WrapProtocol(errors.ErrMissingType, "Client", "handleLine", "type check"))
		return nil
	}
	if c.registry != nil {
		c.registry.CoreMetrics().RecordMessageReceived(kind)
	}

	if c.checkPluginID {
		if id := msg.PluginID(); id != "" && id != c.pluginID {
			c.emitError(msg, errors.WrapProtocol(
				fmt.Errorf("%w: got %q", errors.ErrPluginIDMismatch, id),
				"Client", "handleLine", "plugin id check"))
			return nil
		}
	}

	if !inboundKinds[kind] {
		c.logger.Debug("unrecognized message kind", "type", kind)
	}

	switch kind {
	case KindInfo, KindSettings:
		c.cacheSettings(msg)
	case KindHoldDown:
		c.store.SetHeld(msg.ActionID(), msg.InstanceID(), true)
	case KindHoldUp:
		c.store.SetHeld(msg.ActionID(), msg.InstanceID(), false)
	case KindBroadcast:
		if c.statesOnBroadcast && msg.str("event") == "pageChange" {
			if err := c.store.ResendAll(); err != nil {
				c.logger.Warn("state resend after page change failed", "err", err)
			}
		}
	case KindClosePlugin:
		// Runs inline so handlers finish before the connection goes away.
		_ = c.dispatch(ctx, msg)
		if c.autoClose {
			c.logger.Info("host requested close")
			return errShutdown
		}
		return nil
	}

	if err := c.pool.Submit(msg); err != nil {
		c.logger.Warn("dispatch queue full, dropping message", "type", kind)
		c.emitError(msg, errors.WrapTransport(
			fmt.Errorf("%w: dropped %s", errors.ErrSendBufferFull, kind),
			"Client", "handleLine", "submit to dispatch queue"))
	}
	return nil
}

func (c *Client) cacheSettings(msg Message) {
	values := msg.Settings()

	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	if msg.Type() == KindInfo {
		c.info = msg
	}
	for name, value := range values {
		c.settings[name] = value
	}
}

// dispatch runs all handlers for one message. It is the pool processor.
func (c *Client) dispatch(ctx context.Context, msg Message) error {
	kind := msg.Type()

	c.handlersMu.RLock()
	handlers := make([]Handler, 0, len(c.handlers[kind])+len(c.handlers[KindAny]))
	if kind != KindAny {
		handlers = append(handlers, c.handlers[kind]...)
	}
	handlers = append(handlers, c.handlers[KindAny]...)
	c.handlersMu.RUnlock()

	start := time.Now()
	var lastErr error
	for _, h := range handlers {
		if err := c.runHandler(ctx, h, msg); err != nil {
			lastErr = err
			c.emitError(msg, err)
		}
	}

	if c.registry != nil {
		status := "success"
		if lastErr != nil {
			status = "error"
		}
		core := c.registry.CoreMetrics()
		core.RecordMessageDispatched(kind, status)
		core.RecordHandlerDuration(kind, time.Since(start))
	}
	return lastErr
}

// runHandler contains one handler invocation. A panic in one handler must
// not prevent the remaining handlers from seeing the message.
func (c *Client) runHandler(ctx context.Context, h Handler, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}

func (c *Client) emitError(msg Message, err error) {
	class := errors.Classify(err)
	c.logger.Error("event error", "class", class.String(), "err", err)
	if c.registry != nil {
		c.registry.CoreMetrics().RecordError(class.String())
	}

	c.handlersMu.RLock()
	observers := make([]ErrorHandler, len(c.errorHandlers))
	copy(observers, c.errorHandlers)
	handlers := make([]Handler, len(c.handlers[KindError]))
	copy(handlers, c.handlers[KindError])
	c.handlersMu.RUnlock()

	for _, observer := range observers {
		observer(msg, err)
	}

	if len(handlers) == 0 {
		return
	}
	event := Message{"type": KindError, "class": class.String(), "message": err.Error()}
	if msg != nil {
		event["source"] = map[string]any(msg)
	}
	for _, h := range handlers {
		// Failures here are logged only; emitting again would recurse.
		if herr := c.runHandler(context.Background(), h, event); herr != nil {
			c.logger.Error("error handler failed", "err", herr)
		}
	}
}

func (c *Client) recordStatus() {
	if c.registry != nil {
		c.registry.CoreMetrics().RecordConnectionStatus(int(c.Status()))
	}
}

// send serializes one outbound message. Writes are serialized so concurrent
// senders never interleave partial lines.
func (c *Client) send(payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapUsage(err, "Client", "send", "encode payload")
	}
	data = append(data, '\n')

	if c.limiter != nil {
		c.mu.Lock()
		ctx := c.runCtx
		c.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.WrapTransport(err, "Client", "send", "rate limit wait")
		}
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.WrapUsage(errors.ErrNotConnected, "Client", "send", "connection check")
	}

	if _, err := conn.Write(data); err != nil {
		return errors.WrapTransport(err, "Client", "send", "write")
	}
	if c.registry != nil {
		if kind, ok := payload["type"].(string); ok {
			c.registry.CoreMetrics().RecordMessageSent(kind)
		}
	}
	return nil
}

// Send writes an arbitrary message to the host. The payload must carry a
// "type" field; prefer the typed operations where one exists.
func (c *Client) Send(payload map[string]any) error {
	if payload == nil {
		return errors.WrapUsage(errors.ErrMissingType, "Client", "Send", "payload check")
	}
	if kind, ok := payload["type"].(string); !ok || kind == "" {
		return errors.WrapUsage(errors.ErrMissingType, "Client", "Send", "payload check")
	}
	return c.send(payload)
}

// CreateState creates a runtime state, or updates its value when the id
// already exists.
func (c *Client) CreateState(id, description, value string) error {
	return c.store.CreateOrUpdateState(id, description, value)
}

// CreateStates creates several runtime states in order, stopping at the
// first failure.
func (c *Client) CreateStates(states []StateDefinition) error {
	for _, s := range states {
		if err := c.store.CreateOrUpdateState(s.ID, s.Description, s.Value); err != nil {
			return err
		}
	}
	return nil
}

// RemoveState removes a runtime state. Unknown ids are a no-op.
func (c *Client) RemoveState(id string) error {
	return c.store.RemoveState(id)
}

// RemoveStates removes several runtime states in order, stopping at the
// first failure.
func (c *Client) RemoveStates(ids []string) error {
	for _, id := range ids {
		if err := c.store.RemoveState(id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateState writes a new state value. Unchanged values are suppressed.
func (c *Client) UpdateState(id, value string) error {
	return c.store.UpdateState(id, value)
}

// UpdateStates writes several state values in order, stopping at the first
// failure. Each unchanged value is suppressed individually.
func (c *Client) UpdateStates(states []StateValue) error {
	for _, s := range states {
		if err := c.store.UpdateState(s.ID, s.Value); err != nil {
			return err
		}
	}
	return nil
}

// RegisterState seeds a descriptor-declared state so the first UpdateState
// call can be suppressed against its default.
func (c *Client) RegisterState(id, description, value string) {
	c.store.RegisterStatic(id, description, value)
}

// ResendStates re-sends every known state value, bypassing suppression.
func (c *Client) ResendStates() error {
	return c.store.ResendAll()
}

// States returns a snapshot of all tracked state values.
func (c *Client) States() map[string]string {
	return c.store.States()
}

// SettingUpdate writes a new value for a plugin setting. Unchanged values
// are suppressed.
func (c *Client) SettingUpdate(name, value string) error {
	return c.store.UpdateSetting(name, value)
}

// Setting returns the current value of a plugin setting as last reported by
// the host.
func (c *Client) Setting(name string) (string, bool) {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	value, ok := c.settings[name]
	return value, ok
}

// Info returns the pairing info message the host sent, or nil before it
// arrives.
func (c *Client) Info() Message {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	return c.info
}

// IsActionBeingHeld reports whether any instance of the action is held down.
func (c *Client) IsActionBeingHeld(actionID string) bool {
	return c.store.IsHeld(actionID)
}

// ChoiceUpdate replaces the value list of a choice field everywhere it
// appears.
func (c *Client) ChoiceUpdate(id string, values []string) error {
	if id == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Client", "ChoiceUpdate", "id check")
	}
	if values == nil {
		values = []string{}
	}
	return c.send(map[string]any{"type": kindChoiceUpdate, "id": id, "value": values})
}

// ChoiceUpdateSpecific replaces the value list of a choice field for one
// visible instance only.
func (c *Client) ChoiceUpdateSpecific(id, instanceID string, values []string) error {
	if id == "" || instanceID == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Client", "ChoiceUpdateSpecific", "id check")
	}
	if values == nil {
		values = []string{}
	}
	return c.send(map[string]any{
		"type":       kindChoiceUpdate,
		"id":         id,
		"instanceId": instanceID,
		"value":      values,
	})
}

// ConnectorUpdate moves a connector to a position between 0 and 100. The
// connector id is prefixed with the pairing namespace unless already given
// in full form.
func (c *Client) ConnectorUpdate(connectorID string, value int) error {
	if connectorID == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Client", "ConnectorUpdate", "id check")
	}
	if value < 0 || value > 100 {
		return errors.WrapUsage(
			fmt.Errorf("connector value %d outside 0..100", value),
			"Client", "ConnectorUpdate", "value check")
	}
	full := connectorID
	if !hasConnectorPrefix(connectorID) {
		full = "pc_" + c.pluginID + "_" + connectorID
	}
	return c.send(map[string]any{"type": kindConnectorUpdate, "connectorId": full, "value": value})
}

func hasConnectorPrefix(id string) bool {
	return len(id) > 3 && id[:3] == "pc_"
}

// ShowNotification displays a clickable notification in the host UI. At
// least one option is required so the user always has something to click.
func (c *Client) ShowNotification(notificationID, title, message string, options []NotificationOption) error {
	if notificationID == "" || title == "" || message == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Client", "ShowNotification", "field check")
	}
	if len(options) == 0 {
		return errors.WrapUsage(
			fmt.Errorf("notification %q has no options", notificationID),
			"Client", "ShowNotification", "options check")
	}
	for _, opt := range options {
		if opt.ID == "" || opt.Title == "" {
			return errors.WrapUsage(
				fmt.Errorf("notification %q has an option with empty id or title", notificationID),
				"Client", "ShowNotification", "options check")
		}
	}
	return c.send(map[string]any{
		"type":           kindShowNotification,
		"notificationId": notificationID,
		"title":          title,
		"msg":            message,
		"options":        options,
	})
}

// UpdateActionData changes the numeric range of an action data field at
// runtime.
func (c *Client) UpdateActionData(dataID string, minValue, maxValue float64) error {
	if dataID == "" {
		return errors.WrapUsage(errors.ErrEmptyIdentifier, "Client", "UpdateActionData", "id check")
	}
	if minValue > maxValue {
		return errors.WrapUsage(
			fmt.Errorf("minValue %v greater than maxValue %v", minValue, maxValue),
			"Client", "UpdateActionData", "range check")
	}
	return c.send(map[string]any{
		"type": kindUpdateActionData,
		"data": map[string]any{
			"id":       dataID,
			"type":     "number",
			"minValue": minValue,
			"maxValue": maxValue,
		},
	})
}
