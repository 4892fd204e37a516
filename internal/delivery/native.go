package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cristianoliveira/mailnotify/internal/colors"
	"github.com/cristianoliveira/mailnotify/internal/ports"
	"github.com/cristianoliveira/mailnotify/internal/version"
)

// DefaultTimeout bounds a one-shot exchange with a native host.
const DefaultTimeout = 30 * time.Second

// ErrConnectionClosed is returned by Post once the persistent host can no longer receive frames.
var ErrConnectionClosed = errors.New("connection closed")

// closeGrace is how long a persistent host may take to exit after its stdin closes.
const closeGrace = 2 * time.Second

// NativeTransport talks to native hosts over their standard input.
type NativeTransport struct {
	mu      sync.RWMutex
	resolve HostResolver
	timeout time.Duration
	// Stdout and Stderr receive the host's output. They default to os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

var _ ports.Transport = (*NativeTransport)(nil)

// NewNativeTransport creates a transport resolving hosts with resolve.
func NewNativeTransport(resolve HostResolver, timeout time.Duration) *NativeTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NativeTransport{resolve: resolve, timeout: timeout}
}

// Configure replaces the resolver and timeout used by later sends and connections.
func (t *NativeTransport) Configure(resolve HostResolver, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolve = resolve
	t.timeout = timeout
}

func (t *NativeTransport) settings() (HostResolver, time.Duration) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resolve, t.timeout
}

func (t *NativeTransport) command(ctx context.Context, host Host) *exec.Cmd {
	cmd := exec.CommandContext(ctx, host.Path, host.Args...)
	cmd.Env = append(os.Environ(),
		"MAILNOTIFY_HOST_NAME="+host.Name,
		"MAILNOTIFY_USER_AGENT="+version.UserAgent())
	cmd.Stdout = t.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stderr
	}
	cmd.Stderr = t.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.WaitDelay = closeGrace
	return cmd
}

// SendOnce starts the host, writes a single frame, closes its input and waits for it to exit.
func (t *NativeTransport) SendOnce(ctx context.Context, name string, payload []byte) error {
	resolve, timeout := t.settings()
	host, err := resolve(name)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := t.command(ctx, host)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("delivery: stdin for %s: %w", host.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("delivery: start host %s: %w", host.Name, err)
	}

	writeErr := WriteFrame(stdin, payload)
	closeErr := stdin.Close()
	waitErr := cmd.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("delivery: host %s timed out after %.2fs", host.Name, time.Since(start).Seconds())
	}
	if writeErr != nil {
		return fmt.Errorf("delivery: host %s: %w", host.Name, writeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("delivery: host %s failed: %w", host.Name, waitErr)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("delivery: host %s: close stdin: %w", host.Name, closeErr)
	}
	colors.Debug(fmt.Sprintf("host %s completed in %.2fs", host.Name, time.Since(start).Seconds()))
	return nil
}

// Connect starts a long-lived host. The host keeps running until the connection is closed.
func (t *NativeTransport) Connect(ctx context.Context, name string) (ports.Conn, error) {
	resolve, _ := t.settings()
	host, err := resolve(name)
	if err != nil {
		return nil, err
	}
	// The process outlives the request context; Close owns its lifetime.
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := t.command(procCtx, host)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("delivery: stdin for %s: %w", host.Name, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("delivery: start host %s: %w", host.Name, err)
	}

	conn := &nativeConn{
		name:   host.Name,
		cmd:    cmd,
		stdin:  stdin,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go conn.wait()
	colors.Debug(fmt.Sprintf("connected to host %s (pid %d)", host.Name, cmd.Process.Pid))
	return conn, nil
}

type nativeConn struct {
	name    string
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	cancel  context.CancelFunc
	done    chan struct{}
	waitErr error
	closed  bool
}

func (c *nativeConn) wait() {
	c.waitErr = c.cmd.Wait()
	close(c.done)
}

// Post writes one frame to the host. If ctx ends mid-write the stream is left with a partial
// frame, so the host is stopped and the connection is closed.
func (c *nativeConn) Post(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("delivery: host %s: %w", c.name, ErrConnectionClosed)
	}
	select {
	case <-c.done:
		return fmt.Errorf("delivery: host %s exited: %v: %w", c.name, c.waitErr, ErrConnectionClosed)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	written := make(chan error, 1)
	go func() { written <- WriteFrame(c.stdin, payload) }()
	select {
	case err := <-written:
		if err != nil {
			return fmt.Errorf("delivery: host %s: %w", c.name, err)
		}
		return nil
	case <-ctx.Done():
		c.abort()
		<-written
		return fmt.Errorf("delivery: host %s: post aborted: %w: %w", c.name, ctx.Err(), ErrConnectionClosed)
	}
}

// abort stops the host without waiting for a clean exit. c.mu must be held.
func (c *nativeConn) abort() {
	c.closed = true
	_ = c.stdin.Close()
	c.cancel()
}

// Close closes the host's input and waits briefly for it to exit before killing it.
func (c *nativeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.stdin.Close()

	timer := time.NewTimer(closeGrace)
	defer timer.Stop()
	select {
	case <-c.done:
	case <-timer.C:
		colors.Warning(fmt.Sprintf("host %s did not exit after disconnect, killing it", c.name))
		c.cancel()
		<-c.done
	}
	c.cancel()
	return nil
}
