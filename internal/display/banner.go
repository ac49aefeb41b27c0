package display

import (
	"fmt"
	"io"

	"github.com/StephanOrgiazzi/convertav1/internal/term"
)

// PrintBanner prints the ASCII art banner, in cyan when colors are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Cyan)
	fmt.Fprint(w, `                                 _              _
  ___ ___  _ ____   _____ _ __| |_ __ ___   _/ |
 / __/ _ \| '_ \ \ / / _ \ '__| __/ _`+"`"+` \ \ / / |
| (_| (_) | | | \ V /  __/ |  | || (_| |\ V /| |
 \___\___/|_| |_|\_/ \___|_|   \__\__,_| \_/ |_|
`)
	fmt.Fprint(w, term.NC)
	fmt.Fprintf(w, "%sv%s  shrink videos to about half their size with AV1%s\n\n", term.Dim, version, term.NC)
}
