package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgnsrekt/chart_vault/internal/chartimg"
)

// KeyPrefix is the folder all chart objects live under.
const KeyPrefix = "charts/"

var (
	nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)
	tsReplacer = strings.NewReplacer(":", "-", ".", "-")
)

// ObjectKey derives the storage key for a generation. The format is frozen
// for compatibility with previously stored data:
// charts/{timestamp}_{symbol}_{interval}_{theme}_{w}x{h}.png where the
// timestamp is ISO-8601 with ':' and '.' replaced by '-' and the symbol has
// every non-alphanumeric replaced by '_'. Uniqueness relies on millisecond
// timestamp granularity.
func ObjectKey(meta chartimg.Meta) string {
	ts := tsReplacer.Replace(meta.GeneratedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
	symbol := nonAlnumRe.ReplaceAllString(meta.Symbol, "_")
	return fmt.Sprintf("%s%s_%s_%s_%s_%dx%d.png",
		KeyPrefix, ts, symbol, meta.Interval, meta.Theme, meta.Width, meta.Height)
}
