package chartimg

import "time"

// Request describes one chart image to render.
type Request struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Theme    string `json:"theme"`
}

// Meta records the request parameters alongside the generation timestamp.
type Meta struct {
	Symbol      string    `json:"symbol"`
	Interval    string    `json:"interval"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Theme       string    `json:"theme"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Generation is a rendered chart image with its metadata.
type Generation struct {
	Image       []byte `json:"-"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Meta        Meta   `json:"meta"`
}

// Intervals the provider accepts.
var supportedIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true, "45m": true,
	"1h": true, "2h": true, "3h": true, "4h": true,
	"1D": true, "1W": true, "1M": true,
}

// SupportedInterval reports whether the provider accepts the interval code.
func SupportedInterval(interval string) bool {
	return supportedIntervals[interval]
}
