package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsMatchThroughWrapping(t *testing.T) {
	sentinels := []error{
		ErrorNotFound,
		ErrorInvalidTarget,
		ErrorInternal,
		ErrorUnauthorized,
		ErrInvalidToken,
		ErrTokenExpired,
		ErrForbiddenRole,
		ErrMessageTooLarge,
		ErrChannelClosed,
	}

	for _, s := range sentinels {
		wrapped := fmt.Errorf("layer two: %w", fmt.Errorf("layer one: %w", s))
		if !errors.Is(wrapped, s) {
			t.Fatalf("errors.Is lost %q through wrapping", s)
		}
		for _, other := range sentinels {
			if other != s && errors.Is(wrapped, other) {
				t.Fatalf("%q unexpectedly matches %q", s, other)
			}
		}
	}
}
