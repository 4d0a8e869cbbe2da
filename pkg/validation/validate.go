package validation

import "errors"

// Contract limits. These are part of the wire contract, not tunables:
// ids are 64-char derived hex (shorter opaque ids are accepted), content
// is capped at 100 KiB.
const (
	MaxIDLength     = 64
	MaxContentBytes = 100 * 1024
)

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrContentRequired = errors.New("content required")
	ErrContentTooLarge = errors.New("content too large (max 100KB)")
)

// ValidateID checks the identifier length bounds. The id is otherwise
// opaque: the store attaches no meaning to it.
func ValidateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return ErrInvalidID
	}
	return nil
}

// ValidateContent checks that content is present and within the size cap.
func ValidateContent(content string) error {
	if content == "" {
		return ErrContentRequired
	}
	if len(content) > MaxContentBytes {
		return ErrContentTooLarge
	}
	return nil
}
