package export

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// RGB is an 8-bit color
type RGB struct {
	R, G, B uint8
}

// ParseColor resolves an SVG color name or a #rgb / #rrggbb token
func ParseColor(token string) (RGB, bool) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "#") {
		c, err := colorful.Hex(token)
		if err != nil {
			return RGB{}, false
		}
		r, g, b := c.RGB255()
		return RGB{R: r, G: g, B: b}, true
	}
	if c, ok := colornames.Map[strings.ToLower(token)]; ok {
		return RGB{R: c.R, G: c.G, B: c.B}, true
	}
	return RGB{}, false
}

// ColorOr parses token and falls back when it is not a color
func ColorOr(token string, fallback RGB) RGB {
	if c, ok := ParseColor(token); ok {
		return c
	}
	return fallback
}

// Hex returns the color as RRGGBB, the form spreadsheet styles expect
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// Named colors used by the encoders
var (
	ColorGrey       = RGB{R: 128, G: 128, B: 128}
	ColorWhiteSmoke = RGB{R: 245, G: 245, B: 245}
	ColorBeige      = RGB{R: 245, G: 245, B: 220}
	ColorWhite      = RGB{R: 255, G: 255, B: 255}
	ColorBackground = RGB{R: 240, G: 240, B: 240}
)
