package status

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		require.True(t, errors.Is(ErrUnsupportedEncoding, errors.ErrUnsupported))
		require.True(t, errors.Is(ErrExpectationFailed, errors.ErrUnsupported))
		require.False(t, errors.Is(ErrBadChunk, errors.ErrUnsupported))
	})

	t.Run("identity", func(t *testing.T) {
		wrapped := fmt.Errorf("reading body: %w", ErrBadChunk)
		require.True(t, errors.Is(wrapped, ErrBadChunk))
		require.False(t, errors.Is(wrapped, ErrBadHeader))
	})

	t.Run("code of", func(t *testing.T) {
		require.Equal(t, ExpectationFailed, CodeOf(ErrExpectationFailed))
		require.Equal(t, RequestHeaderFieldsTooLarge, CodeOf(fmt.Errorf("x: %w", ErrHeaderFieldsTooLarge)))
		require.Equal(t, InternalServerError, CodeOf(io.ErrUnexpectedEOF))
	})

	t.Run("contract", func(t *testing.T) {
		require.True(t, IsContract(ErrStreamClosed))
		require.True(t, IsContract(ErrPipedRequestBody))
		require.True(t, IsContract(fmt.Errorf("write: %w", Violation("oops"))))
		require.False(t, IsContract(ErrBadRequest))
		require.EqualError(t, Violation("oops"), "contract violation: oops")
	})
}
