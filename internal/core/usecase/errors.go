package usecase

import (
	"errors"
	"fmt"
)

var (
	errEmptyCode      = errors.New("code is required")
	errEmptySessionID = errors.New("session id is required")
)

func errSession(id string) error {
	return fmt.Errorf("session %q", id)
}
