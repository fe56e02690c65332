package ui

// Config holds window/input settings for the display surface: just
// what a bare display+joypad window needs, with no audio, ROM-picker,
// overlay-skin, or per-ROM-palette options to carry.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbcore"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
