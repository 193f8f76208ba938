package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorComposesReasons(t *testing.T) {
	wrapped := WrapError("scan", NewError("bad row").(sampleError)).(sampleError)
	assert.Equal(t, "scan: bad row", wrapped.Reason)

	inner := fmt.Errorf("boom")
	wrapped = WrapError("scan", inner).(sampleError)
	assert.Equal(t, "scan", wrapped.Reason)
	assert.Equal(t, inner, wrapped.Err)
}

func TestCoerceError(t *testing.T) {
	se := NewError("bad row")
	assert.Equal(t, se, CoerceError(se.(sampleError)))

	coerced, ok := CoerceError(fmt.Errorf("boom")).(sampleError)
	require.True(t, ok)
	assert.Equal(t, "uncategorized", coerced.Reason)
	assert.Equal(t, "uncategorized: boom", coerced.Error())
}
