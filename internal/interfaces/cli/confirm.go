package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm asks a yes/no question on out and reads the answer from in. An
// empty answer or a read error yields defaultYes.
func Confirm(in io.Reader, out io.Writer, message string, defaultYes bool) bool {
	prompt := message
	if defaultYes {
		prompt += " (Y/n): "
	} else {
		prompt += " (y/N): "
	}

	fmt.Fprint(out, prompt)

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return defaultYes
	}

	response = strings.TrimSpace(strings.ToLower(response))

	if response == "" {
		return defaultYes
	}

	return response == "y" || response == "yes"
}
