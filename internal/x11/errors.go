package x11

import (
	"errors"

	"github.com/nerrad567/vibrant/internal/display"
)

func isNotFound(err error) bool {
	return errors.Is(err, display.ErrNotFound)
}
