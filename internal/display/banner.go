package display

import (
	"fmt"
	"io"

	"github.com/backmassage/iconrender/internal/term"
)

const banner = ` _                                _
(_) ___ ___  _ __  _ __ ___ _ __   __| | ___ _ __
| |/ __/ _ \| '_ \| '__/ _ \ '_ \ / _` + "`" + ` |/ _ \ '__|
| | (_| (_) | | | | | |  __/ | | | (_| |  __/ |
|_|\___\___/|_| |_|_|  \___|_| |_|\__,_|\___|_|`

// PrintBanner writes the ASCII art banner to w, in magenta when colors are
// enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, term.Paint(term.Magenta, banner))
}
