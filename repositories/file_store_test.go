package repositories

import (
	"chat-relay/errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiskStore_Save_Then_Open(t *testing.T) {
	req := require.New(t)
	store, err := NewDiskStore(t.TempDir())
	req.NoError(err)

	storedName, size, err := store.Save("../../Plan.PDF", strings.NewReader("%PDF-1.4 content"))
	req.NoError(err)
	req.Equal(int64(16), size)
	req.True(strings.HasSuffix(storedName, ".pdf"))
	req.NotContains(storedName, "/")

	f, err := store.Open(storedName)
	req.NoError(err)
	defer f.Close()
	content, err := io.ReadAll(f)
	req.NoError(err)
	req.Equal("%PDF-1.4 content", string(content))
}

func TestDiskStore_Names_Are_Unique(t *testing.T) {
	req := require.New(t)
	store, err := NewDiskStore(t.TempDir())
	req.NoError(err)

	first, _, err := store.Save("a.txt", strings.NewReader("a"))
	req.NoError(err)
	second, _, err := store.Save("a.txt", strings.NewReader("b"))
	req.NoError(err)

	req.NotEqual(first, second)
}

func TestDiskStore_Open_Rejects_Traversal(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secret", ".hidden", "a/b.txt", "missing.txt"} {
		_, err := store.Open(name)
		require.ErrorIs(t, err, errors.ErrInvalidAttachment, name)
	}
}
