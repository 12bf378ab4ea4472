package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"act-academy/internal/domain"
)

// parseOption accepts a letter (A, b) or a 1-based number for an option.
func parseOption(raw string, optionCount int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if optionCount < 1 || raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > optionCount {
			return 0, false
		}
		return n - 1, true
	}
	if len(raw) != 1 {
		return 0, false
	}
	letter := strings.ToUpper(raw)[0]
	index := int(letter) - 'A'
	if index < 0 || index >= optionCount {
		return 0, false
	}
	return index, true
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			if err != nil {
				return false, err
			}
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

// describeError turns backend failures into the message a user can act on.
func describeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrMaintenance):
		return errors.New("the academy is down for maintenance, try again later")
	case errors.Is(err, domain.ErrAuthExpired):
		return errors.New("your session expired, sign in again")
	case errors.Is(err, domain.ErrTransient):
		return fmt.Errorf("could not reach the academy: %w", err)
	}
	return err
}
