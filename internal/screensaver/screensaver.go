package screensaver

// Params are the display server's screensaver settings. Timeout and
// Interval are in seconds.
type Params struct {
	Timeout        int  `json:"timeout"`
	Interval       int  `json:"interval"`
	PreferBlanking bool `json:"prefer_blanking"`
	AllowExposures bool `json:"allow_exposures"`
}

// Display reads and changes screensaver settings on the display server.
type Display interface {
	Params() (Params, error)
	ForceActive() error
	SetParams(Params) error
}

// Unavailable is a Display for hosts without a display-server connection.
// Every call fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Params() (Params, error) { return Params{}, u.Err }
func (u Unavailable) ForceActive() error      { return u.Err }
func (u Unavailable) SetParams(Params) error  { return u.Err }
