package dsterr_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dswarbrick/dstclean/dsterr"
)

func TestIsUnwraps(t *testing.T) {
	base := dsterr.New("send_dst", dsterr.AccessDenied, fmt.Errorf("permission denied"))
	wrapped := fmt.Errorf("run: %w", base)

	assert.True(t, dsterr.Is(wrapped, dsterr.AccessDenied))
	assert.False(t, dsterr.Is(wrapped, dsterr.Aborted))

	kind, ok := dsterr.KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, dsterr.AccessDenied, kind)
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := dsterr.KindOf(fmt.Errorf("boom"))
	assert.False(t, ok)
}
