package spantree

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidArgument is returned for span events that would corrupt the forest.
// Missing parents, duplicate ids and out-of-order arrival are not errors.
var ErrInvalidArgument = errors.New("invalid argument")

func validate(id, parentID string, duration time.Duration) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: span id is empty", ErrInvalidArgument)
	case id == parentID:
		return fmt.Errorf("%w: span %q names itself as parent", ErrInvalidArgument, id)
	case duration < 0:
		return fmt.Errorf("%w: span %q has negative duration %s", ErrInvalidArgument, id, duration)
	}
	return nil
}
