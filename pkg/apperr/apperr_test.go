package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	sentinel := Conflict("payment_already_completed")
	wrapped := fmt.Errorf("complete payment 42: %w", sentinel)

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.Equal(t, KindConflict, KindOf(wrapped))

	e, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "payment_already_completed", e.Code)
}

func TestSentinelsWithSameCodeAreDistinct(t *testing.T) {
	a := NotFound("not_found")
	b := NotFound("not_found")
	assert.False(t, errors.Is(a, b))
}

func TestUnclassifiedError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Kind(""), KindOf(err))
	assert.False(t, IsKind(err, KindNotFound))
}
