// CLAUDE:SUMMARY Derives tab background/foreground colors and a dark flag from a page URL (pure, no I/O).
// Package theme derives the visual colors of a tab from its URL.
//
// Known sites get a curated palette keyed by registrable domain. Every
// other host gets a stable color hashed from its domain, so the same site
// always paints the same tab.
package theme

import (
	"fmt"
	"hash/fnv"
	"math"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Colors is the derived palette for a URL.
type Colors struct {
	Background string `json:"background_color"`
	Foreground string `json:"foreground_color"`
	IsDark     bool   `json:"is_dark"`
}

const (
	light = "#ffffff"
	dark  = "#000000"
)

var curated = map[string]string{
	"github.com":     "#24292f",
	"wikipedia.org":  "#f8f9fa",
	"mozilla.org":    "#000000",
	"youtube.com":    "#ff0000",
	"twitter.com":    "#1da1f2",
	"x.com":          "#000000",
	"reddit.com":     "#ff4500",
	"google.com":     "#ffffff",
	"duckduckgo.com": "#de5833",
	"go.dev":         "#00add8",
}

// Derive returns the palette for uri. URIs without a host (about:, data:,
// malformed input) get the neutral light palette.
func Derive(uri string) Colors {
	domain := Domain(uri)
	if domain == "" {
		return Colors{Background: light, Foreground: dark}
	}

	bg, ok := curated[domain]
	if !ok {
		bg = hashed(domain)
	}
	isDark := luminance(bg) < 0.5
	fg := dark
	if isDark {
		fg = light
	}
	return Colors{Background: bg, Foreground: fg, IsDark: isDark}
}

// Domain returns the registrable domain (eTLD+1) of uri, or the bare host
// when the host has none (localhost, IP literals). Empty for host-less URIs.
func Domain(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// hashed maps a domain to a mid-saturation color. Hue comes from an FNV
// hash; lightness alternates between a dark and a light band.
func hashed(domain string) string {
	h := fnv.New32a()
	h.Write([]byte(domain))
	sum := h.Sum32()

	hue := float64(sum%360) / 360
	lightness := 0.35
	if sum&0x100 != 0 {
		lightness = 0.75
	}
	r, g, b := hslToRGB(hue, 0.55, lightness)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}

// luminance returns the relative luminance (0..1) of a #rrggbb color.
func luminance(hex string) float64 {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 1
	}
	lin := func(c uint8) float64 {
		v := float64(c) / 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(r) + 0.7152*lin(g) + 0.0722*lin(b)
}
