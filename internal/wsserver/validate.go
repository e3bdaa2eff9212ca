package wsserver

import (
	"fmt"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_\- ]{2,20}$`)

func validateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	return nil
}

func validateChatMessage(msg string) (string, error) {
	trimmed := strings.TrimSpace(msg)
	if len(trimmed) < 1 || len(trimmed) > 200 {
		return "", fmt.Errorf("chat message must be 1..200 characters")
	}
	return trimmed, nil
}

const maxWagerAmount = 1_000_000

func validateWagerAmount(amount int) error {
	if amount < 1 || amount > maxWagerAmount {
		return fmt.Errorf("amount must be between 1 and %d", maxWagerAmount)
	}
	return nil
}
