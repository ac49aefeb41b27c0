// Package prompt asks for an input path when none was given on the
// command line.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/StephanOrgiazzi/convertav1/internal/config"
)

// ErrNoInput means the user entered nothing (or stdin was closed).
var ErrNoInput = errors.New("no input file given")

// Message is printed before reading.
const Message = "Drag a video file here (or type its path) and press Enter: "

// ReadPath writes the prompt to out and reads one line from in. Surrounding
// quotes are removed, so paths pasted by drag-and-drop work unchanged.
func ReadPath(in io.Reader, out io.Writer) (string, error) {
	if _, err := fmt.Fprint(out, Message); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input path: %w", err)
	}
	path := config.TrimQuotes(strings.TrimRight(line, "\r\n"))
	if path == "" {
		return "", ErrNoInput
	}
	return path, nil
}
