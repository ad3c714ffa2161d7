package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// ExecSurface shows pages by running a kiosk launcher (for example WPE's
// cog) with the URI as its last argument. Each LoadURI replaces the
// previous launcher process. It carries no channel messages; pair it with
// a SocketBridge.
type ExecSurface struct {
	argv   []string
	logger *log.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	exit chan struct{}
	uri  string
}

// NewExecSurface creates a surface for the launcher argv.
func NewExecSurface(argv []string, logger *log.Logger) *ExecSurface {
	return &ExecSurface{
		argv:   argv,
		logger: logger.With("component", "exec-surface"),
	}
}

// LoadURI stops the running launcher, if any, and starts a new one on uri.
func (e *ExecSurface) LoadURI(uri string) error {
	if len(e.argv) == 0 {
		return errors.New("no browser command configured")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()

	args := append(append([]string(nil), e.argv[1:]...), uri)
	cmd := exec.Command(e.argv[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.argv[0], err)
	}
	exit := make(chan struct{})
	go func() {
		err := cmd.Wait()
		close(exit)
		if err != nil {
			e.logger.Debug("launcher exited", "uri", uri, "err", err)
		}
	}()
	e.cmd, e.exit, e.uri = cmd, exit, uri
	return nil
}

// Start blocks until ctx is cancelled, then kills the running launcher.
func (e *ExecSurface) Start(ctx context.Context) error {
	<-ctx.Done()
	e.Stop()
	return nil
}

func (e *ExecSurface) stopLocked() {
	if e.cmd == nil {
		return
	}
	select {
	case <-e.exit:
	default:
		_ = e.cmd.Process.Kill()
		<-e.exit
	}
	e.cmd, e.exit = nil, nil
}

// Stop kills the running launcher.
func (e *ExecSurface) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

// Status returns the surface status.
func (e *ExecSurface) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil {
		return "exec surface idle"
	}
	select {
	case <-e.exit:
		return fmt.Sprintf("exec surface exited (%s)", e.uri)
	default:
	}
	return fmt.Sprintf("exec surface running %s (%s)", strings.Join(e.argv, " "), e.uri)
}
