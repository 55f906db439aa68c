package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EmptyIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestDecode_RoundTrip(t *testing.T) {
	token, err := Encode(Cursor{ActorID: 4, UpdatedUnix: 1700000000000})
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), c.ActorID)
	assert.Equal(t, int64(1700000000000), c.UpdatedUnix)
	assert.False(t, c.IsZero())
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode("%%%not-base64")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Decode("bm90LWpzb24=") // "not-json"
	assert.ErrorIs(t, err, ErrInvalidToken)
}
