package theme

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	cyan    = "\033[36m"
	magenta = "\033[35m"
	yellow  = "\033[33m"
	reset   = "\033[0m"
)

// Banner returns the CLI banner.
func Banner() string {
	return "" +
		magenta + "  ◆ OPENCCP ◆" + reset + "\n" +
		cyan + "  camps · keywords · leaderboards\n" + reset +
		yellow + "  ───────────────────────────────\n" + reset
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}

// Swatch renders a camp color as a terminal block, or the hex code when w is
// not a terminal-like writer.
func Swatch(w io.Writer, hex string) string {
	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		return hex
	}
	r, g, b, ok := parseHex(hex)
	if !ok {
		return hex
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm■%s %s", r, g, b, reset, hex)
}

func parseHex(hex string) (r, g, b int, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}
