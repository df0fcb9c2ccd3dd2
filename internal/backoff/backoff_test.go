package backoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AbdullahP/pokealert/internal/backoff"
)

func TestDelay(t *testing.T) {
	t.Parallel()

	base := time.Second
	max := 30 * time.Second

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{name: "first attempt", attempt: 1, want: time.Second},
		{name: "second doubles", attempt: 2, want: 2 * time.Second},
		{name: "third doubles again", attempt: 3, want: 4 * time.Second},
		{name: "capped at max", attempt: 10, want: 30 * time.Second},
		{name: "zero attempt treated as first", attempt: 0, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, backoff.Delay(tt.attempt, base, max))
		})
	}
}
