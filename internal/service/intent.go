package service

import (
	"fmt"

	"github.com/sakif/snippet-saver/internal/apperror"
)

// Intent selects which mutation a POST to a snippet's detail page performs.
// It arrives as the `intent` form field.
type Intent int

const (
	IntentDelete Intent = iota + 1
	IntentFavorite
)

// ParseIntent maps the form value onto an Intent. Anything else is a
// validation error (400), never a silent no-op.
func ParseIntent(raw string) (Intent, error) {
	switch raw {
	case "delete":
		return IntentDelete, nil
	case "favorite":
		return IntentFavorite, nil
	default:
		return 0, apperror.ValidationFailed("intent", fmt.Sprintf("unknown intent %q", raw))
	}
}

func (i Intent) String() string {
	switch i {
	case IntentDelete:
		return "delete"
	case IntentFavorite:
		return "favorite"
	default:
		return fmt.Sprintf("Intent(%d)", int(i))
	}
}
