package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	hostErr := Host("decimate", errors.New("kernel busy"))

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"invalid target", InvalidTarget("%q is not a mesh", "Lamp"), KindInvalidTarget},
		{"empty", ErrEmptySequence, KindEmptySequence},
		{"index", IndexOutOfRange(3, 2), KindIndexOutOfRange},
		{"host", hostErr, KindHostOperationFailed},
		{"wrapped host", fmt.Errorf("apply LOD 1: %w", hostErr), KindHostOperationFailed},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestHostKeepsMessage(t *testing.T) {
	cause := errors.New("exporter crashed: out of memory")
	err := Host("export FBX", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrHostOperation)
	assert.Contains(t, err.Error(), "exporter crashed: out of memory")

	// Wrapping twice keeps the first operation name.
	again := Host("batch", err)
	assert.Same(t, err, again)

	assert.NoError(t, Host("noop", nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "IndexOutOfRange", KindIndexOutOfRange.String())
	assert.Equal(t, "Unknown", Kind(99).String())
}
