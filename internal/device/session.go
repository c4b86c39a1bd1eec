package device

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alpha_innotec_planner/internal/logger"
)

// Subprotocol is the websocket sub-protocol spoken by the Luxtronik controller.
const Subprotocol = "Lux_WS"

// Connection defaults.
const (
	DefaultPort            = 8214
	DefaultResponseTimeout = 30 * time.Second
	writeWait              = 10 * time.Second
	closeGrace             = time.Second
)

// Remote control pulses understood by MOVE.
const (
	pulseRight   = 0
	pulseLeft    = 1
	pulseSelect  = 2
	pulseConfirm = 6
)

// State is the position of a Session in its lifecycle.
//
// Dial yields StateConnected and Login StateLoggedIn. Any screen change
// (GET or MOVE) enters StateNavigating, and ReturnedHome goes back to
// StateLoggedIn. Close ends in StateDisconnected from any state.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateLoggedIn
	StateNavigating
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateLoggedIn:
		return "logged_in"
	case StateNavigating:
		return "navigating"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Remote is the set of operations schedule and temperature routines drive.
// *Session implements it.
type Remote interface {
	Exchange(ctx context.Context, message string) (string, error)
	Send(ctx context.Context, message string) error
	MoveRight(ctx context.Context) error
	MoveLeft(ctx context.Context) error
	Click(ctx context.Context) error
	NavigateTo(ctx context.Context, path string) (string, error)
}

// Options describe how to reach the controller.
type Options struct {
	Host            string
	Port            int
	ResponseTimeout time.Duration
	// Dialer overrides the default websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Session owns one websocket connection to the controller.
//
// Sessions are not safe for concurrent protocol use; the mutex only guards
// the state field so it can be inspected while a run is in flight.
type Session struct {
	conn    *websocket.Conn
	timeout time.Duration
	log     *logger.Logger

	mu    sync.Mutex
	state State
	nav   *Navigation
}

// Dial opens the websocket to the controller. The returned session is in
// StateConnected and must be logged in before use.
func Dial(ctx context.Context, opts Options, log *logger.Logger) (*Session, error) {
	log = logger.OrNop(log)
	if opts.Host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrConnectionFailure)
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	timeout := opts.ResponseTimeout
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: timeout}
	} else {
		d := *dialer
		dialer = &d
	}
	dialer.Subprotocols = []string{Subprotocol}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))
	header := http.Header{}
	header.Set("Origin", "http://"+opts.Host)

	conn, resp, err := dialer.DialContext(ctx, "ws://"+addr, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrConnectionFailure, addr, err)
	}

	s := &Session{conn: conn, timeout: timeout, log: log, state: StateConnected}
	conn.SetPingHandler(func(data string) error {
		s.log.Debugw("device_ping")
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	log.Infow("device_connected", "addr", addr)
	return s, nil
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Navigation returns the menu tree received at login, or nil before Login.
func (s *Session) Navigation() *Navigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav
}

// Login authenticates with the installer code and stores the menu tree.
func (s *Session) Login(ctx context.Context, code string) error {
	if st := s.State(); st != StateConnected {
		return fmt.Errorf("%w: login in state %s", ErrProtocolViolation, st)
	}
	resp, err := s.exchange(ctx, "LOGIN;"+code)
	if err != nil {
		return err
	}
	nav, err := ParseNavigation(resp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.nav = nav
	s.state = StateLoggedIn
	s.mu.Unlock()
	s.log.Infow("device_logged_in", "menus", len(nav.Items))
	return nil
}

func (s *Session) ready() error {
	switch st := s.State(); st {
	case StateLoggedIn, StateNavigating:
		return nil
	default:
		return fmt.Errorf("%w (state %s)", ErrNotLoggedIn, st)
	}
}

// Exchange writes one message and blocks until the controller answers with
// a text frame.
func (s *Session) Exchange(ctx context.Context, message string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return s.exchange(ctx, message)
}

// Send writes one message without waiting for an answer.
func (s *Session) Send(ctx context.Context, message string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.write(ctx, message)
}

// MoveRight turns the dial one step clockwise.
func (s *Session) MoveRight(ctx context.Context) error {
	return s.pulse(ctx, pulseRight)
}

// MoveLeft turns the dial one step counter-clockwise.
func (s *Session) MoveLeft(ctx context.Context) error {
	return s.pulse(ctx, pulseLeft)
}

// Click presses the dial.
func (s *Session) Click(ctx context.Context) error {
	return s.pulse(ctx, pulseSelect)
}

func (s *Session) pulse(ctx context.Context, code int) error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, c := range []int{code, pulseConfirm} {
		if _, err := s.exchange(ctx, "MOVE;"+strconv.Itoa(c)); err != nil {
			return err
		}
	}
	s.setState(StateNavigating)
	return nil
}

// ReturnedHome records that the controller is back on its home screen and
// moves a navigating session back to StateLoggedIn.
func (s *Session) ReturnedHome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateNavigating {
		s.state = StateLoggedIn
	}
}

// NavigateTo opens the screen at path and returns its content.
func (s *Session) NavigateTo(ctx context.Context, path string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	id, err := s.Navigation().Resolve(path)
	if err != nil {
		return "", err
	}
	resp, err := s.exchange(ctx, "GET;"+id)
	if err != nil {
		return "", err
	}
	s.setState(StateNavigating)
	s.log.Debugw("device_navigated", "path", path, "id", id)
	return resp, nil
}

// Close sends a close frame and releases the socket. It is safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnected
	s.nav = nil
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	err := s.conn.Close()
	s.log.Infow("device_disconnected")
	return err
}

func (s *Session) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(s.timeout)
}

func (s *Session) write(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
	_ = s.conn.SetWriteDeadline(s.deadline(ctx))
	s.log.Debugw("device_send", "message", message)
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return fmt.Errorf("%w: write %q: %w", ErrConnectionFailure, message, err)
	}
	return nil
}

// exchange is the state-agnostic send-and-await used by Login and every
// gesture. Control frames are consumed by the handlers installed in Dial
// while ReadMessage runs, so only data frames reach the loop.
func (s *Session) exchange(ctx context.Context, message string) (string, error) {
	if err := s.write(ctx, message); err != nil {
		return "", err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_ = s.conn.SetReadDeadline(s.deadline(ctx))
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return "", fmt.Errorf("%w to %q: %w", ErrNoResponse, message, err)
		}
		if kind == websocket.TextMessage {
			s.log.Debugw("device_receive", "bytes", len(data))
			return string(data), nil
		}
	}
}
