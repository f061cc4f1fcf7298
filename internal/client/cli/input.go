package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/revrsefr/sable/internal/shared"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetSecret prints prompt to w and reads a line from the terminal without
// echo. Surrounding whitespace is trimmed.
func GetSecret(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(b))
	shared.WipeByteArray(b)
	if s == "" {
		return "", errors.New("empty input")
	}
	return s, nil
}
