package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeader(t *testing.T) {
	h := NewHeader(4096)

	assert.Equal(t, Magic, h.Magic)
	assert.Equal(t, CurrentVersion, h.Version)
	assert.Equal(t, uint32(4096), h.PageSize)
	assert.Equal(t, uint64(FirstDataPage), h.PageCount)
	assert.Zero(t, h.Generation)
	assert.Equal(t, Roots{}, h.Roots)
}

func TestHeaderSerializeDeserialize(t *testing.T) {
	original := NewHeader(256)
	original.Roots = Roots{OIDIndex: 10, FreeSpace: 11, Catalog: 12}
	original.PageCount = 1000
	original.Generation = 77
	original.TxID = 5

	buf := make([]byte, HeaderSize)
	require.NoError(t, original.SerializeTo(buf))
	assert.True(t, IsRegion(buf))

	var restored Header
	require.NoError(t, restored.DeserializeAndValidate(buf))
	assert.Equal(t, *original, restored)
}

func TestHeaderBufferTooSmall(t *testing.T) {
	h := NewHeader(256)
	assert.ErrorIs(t, h.SerializeTo(make([]byte, HeaderSize-1)), ErrInvalidHeaderSize)
	assert.ErrorIs(t, h.Deserialize(make([]byte, 10)), ErrInvalidHeaderSize)
}

func TestHeaderValidation(t *testing.T) {
	encode := func() []byte {
		buf := make([]byte, HeaderSize)
		require.NoError(t, NewHeader(256).SerializeTo(buf))
		return buf
	}

	t.Run("magic", func(t *testing.T) {
		buf := encode()
		buf[0] = 'X'
		var h Header
		assert.ErrorIs(t, h.DeserializeAndValidate(buf), ErrInvalidMagic)
		assert.False(t, IsRegion(buf))
	})

	t.Run("version", func(t *testing.T) {
		buf := encode()
		buf[4] = 9
		var h Header
		assert.ErrorIs(t, h.DeserializeAndValidate(buf), ErrUnsupportedVersion)
	})

	t.Run("checksum", func(t *testing.T) {
		buf := encode()
		buf[30] ^= 0x01
		var h Header
		assert.ErrorIs(t, h.DeserializeAndValidate(buf), ErrHeaderChecksum)
	})

	t.Run("zeroed", func(t *testing.T) {
		var h Header
		assert.ErrorIs(t, h.DeserializeAndValidate(make([]byte, HeaderSize)), ErrInvalidMagic)
	})
}

func TestHeaderSlotAlternates(t *testing.T) {
	assert.Equal(t, 0, headerSlot(0))
	assert.Equal(t, 1, headerSlot(1))
	assert.Equal(t, 0, headerSlot(2))
	assert.Equal(t, 1, headerSlot(7))
}
