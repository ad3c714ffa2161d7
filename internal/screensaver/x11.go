package screensaver

import (
	"fmt"
	"math"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// X11 talks to an X server over the core protocol.
type X11 struct {
	conn *xgb.Conn
}

// DialX11 connects to display, or to $DISPLAY when display is empty.
func DialX11(display string) (*X11, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("connect to X display %q: %w", display, err)
	}
	return &X11{conn: conn}, nil
}

// Close closes the X connection.
func (x *X11) Close() {
	x.conn.Close()
}

// Params returns the current screensaver settings.
func (x *X11) Params() (Params, error) {
	reply, err := xproto.GetScreenSaver(x.conn).Reply()
	if err != nil {
		return Params{}, fmt.Errorf("get screensaver: %w", err)
	}
	return Params{
		Timeout:        int(reply.Timeout),
		Interval:       int(reply.Interval),
		PreferBlanking: reply.PreferBlanking == xproto.BlankingPreferred,
		AllowExposures: reply.AllowExposures == xproto.ExposuresAllowed,
	}, nil
}

// ForceActive activates the screensaver immediately.
func (x *X11) ForceActive() error {
	if err := xproto.ForceScreenSaverChecked(x.conn, xproto.ScreenSaverActive).Check(); err != nil {
		return fmt.Errorf("force screensaver: %w", err)
	}
	return nil
}

// SetParams replaces the screensaver settings.
func (x *X11) SetParams(p Params) error {
	blanking := byte(xproto.BlankingNotPreferred)
	if p.PreferBlanking {
		blanking = xproto.BlankingPreferred
	}
	exposures := byte(xproto.ExposuresNotAllowed)
	if p.AllowExposures {
		exposures = xproto.ExposuresAllowed
	}
	err := xproto.SetScreenSaverChecked(x.conn,
		clampInt16(p.Timeout), clampInt16(p.Interval), blanking, exposures).Check()
	if err != nil {
		return fmt.Errorf("set screensaver: %w", err)
	}
	return nil
}

// The protocol carries timeouts as INT16 seconds.
func clampInt16(v int) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < -1:
		return -1
	default:
		return int16(v)
	}
}
