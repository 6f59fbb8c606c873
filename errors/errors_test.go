package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := New(ErrCodeGroupNotFound, "group 3 not found")
		assert.Equal(t, "GROUP_NOT_FOUND: group 3 not found", err.Error())
		assert.Equal(t, ErrCodeGroupNotFound, err.Code)
	})

	t.Run("wrapped error", func(t *testing.T) {
		err := DecodeFailed("/data/groups.json", fmt.Errorf("unexpected EOF"))
		assert.Contains(t, err.Error(), "caused by: unexpected EOF")
		assert.Equal(t, "/data/groups.json", err.Details["path"])
	})

	t.Run("unwrap reaches the cause", func(t *testing.T) {
		err := EncodeFailed("/data/groups.json", fs.ErrPermission)
		assert.ErrorIs(t, err, fs.ErrPermission)
	})
}

func TestIs(t *testing.T) {
	err := NotListening(2)
	wrapped := fmt.Errorf("stop listening: %w", err)

	assert.True(t, Is(err, ErrCodeNotListening))
	assert.True(t, Is(wrapped, ErrCodeNotListening))
	assert.False(t, Is(wrapped, ErrCodeAlreadyListening))
	assert.False(t, Is(nil, ErrCodeNotListening))
	assert.False(t, Is(fmt.Errorf("plain"), ""))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeDirectoryNotFound, GetCode(fmt.Errorf("x: %w", DirectoryNotFound("/d"))))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestToJSON(t *testing.T) {
	err := AlreadyListening(1, "/downloads")
	out := err.ToJSON()
	assert.Contains(t, out, `"code": "ALREADY_LISTENING"`)
	assert.Contains(t, out, `"dir": "/downloads"`)
}
