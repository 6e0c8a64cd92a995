package git

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antgroup/whence/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashReader(t *testing.T) {
	// well-known git blob ids
	oid, err := HashReader(strings.NewReader("hello world\n"), 12)
	require.NoError(t, err)
	assert.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", oid.String())

	oid, err = HashReader(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Equal(t, plumbing.EMPTY_BLOB, oid.String())
}

func TestHashFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(p, []byte("hello world\n"), 0644))
	oid, err := HashFile(p)
	require.NoError(t, err)
	assert.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", oid.String())
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
