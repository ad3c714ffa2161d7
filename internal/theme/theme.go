package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// DefaultName is the theme loaded when none is configured.
	DefaultName = "antergos"
	// FallbackName is the bundled, dependency-free theme used on faults.
	FallbackName = "simple"
)

// Surface is the visible rendering surface. LoadURI only requests the
// load; it does not wait for the page.
type Surface interface {
	LoadURI(uri string) error
}

// NameFromConfig strips a trailing "# comment" and surrounding whitespace
// from a configured theme name.
func NameFromConfig(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// IndexPath returns the index.html path of a theme.
func IndexPath(themeDir, name string) string {
	return filepath.Join(themeDir, name, "index.html")
}

// URI returns the file:// URI of a theme's index.html.
func URI(themeDir, name string) string {
	return "file://" + IndexPath(themeDir, name)
}

// FallbackURI returns the URI of the bundled fallback theme.
func FallbackURI(themeDir string) string {
	return URI(themeDir, FallbackName)
}

// Loader loads the configured theme and, on demand, the fallback theme.
type Loader struct {
	surface  Surface
	themeDir string
	name     string
	logger   *log.Logger
	current  string
}

// NewLoader creates a Loader for the named theme under themeDir.
func NewLoader(surface Surface, themeDir, name string, logger *log.Logger) *Loader {
	if name == "" {
		name = DefaultName
	}
	return &Loader{
		surface:  surface,
		themeDir: themeDir,
		name:     name,
		logger:   logger.With("component", "theme"),
	}
}

// LoadConfigured loads the configured theme. A theme without an index.html
// is skipped in favour of the fallback.
func (l *Loader) LoadConfigured() error {
	if _, err := os.Stat(IndexPath(l.themeDir, l.name)); err != nil {
		l.logger.Warn("configured theme not found, using fallback", "theme", l.name, "err", err)
		return l.LoadFallback()
	}
	return l.load(URI(l.themeDir, l.name))
}

// LoadFallback requests the fallback theme. It is a single attempt.
func (l *Loader) LoadFallback() error {
	return l.load(FallbackURI(l.themeDir))
}

// Current returns the last URI requested, or "" before the first load.
func (l *Loader) Current() string {
	return l.current
}

func (l *Loader) load(uri string) error {
	l.current = uri
	l.logger.Info("loading theme", "uri", uri)
	if err := l.surface.LoadURI(uri); err != nil {
		return fmt.Errorf("load %s: %w", uri, err)
	}
	return nil
}
