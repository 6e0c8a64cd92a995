package revindex

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/antgroup/whence/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T, threads int) *Multi {
	t.Helper()
	m, err := BuildAll(context.Background(), forkCommits(), memOpener(forkSource()), &Options{Threads: threads})
	require.NoError(t, err)
	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := buildFixture(t, 2)
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, m.Len(), loaded.Len())
	require.Equal(t, len(m.Graphs()), len(loaded.Graphs()))

	for _, oid := range []plumbing.Hash{blob1, blob2, tree1, tree2, tree3, commit1, oidOf(0x7f)} {
		assert.Equal(t, multiLookupSet(t, m, oid), multiLookupSet(t, loaded, oid), "lookup %s diverged after round trip", oid)
	}
}

func TestSaveFileLoadFile(t *testing.T) {
	m := buildFixture(t, 1)
	path := filepath.Join(t.TempDir(), "whence.idx")
	require.NoError(t, SaveFile(m, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, multiLookupSet(t, m, blob2), multiLookupSet(t, loaded, blob2))

	// no stray temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Equal(t, 1, len(entries))
}

func TestLoadGarbage(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("certainly not an index")))
	require.Error(t, err)
}

func TestLoadTruncated(t *testing.T) {
	m := buildFixture(t, 2)
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	raw := buf.Bytes()
	_, err := Load(bytes.NewReader(raw[:len(raw)/2]))
	require.Error(t, err)
}

func TestLoadCorrupted(t *testing.T) {
	m := buildFixture(t, 2)
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	raw := buf.Bytes()
	// flip a byte in the middle of the compressed stream
	raw[len(raw)/2] ^= 0xff
	_, err := Load(bytes.NewReader(raw))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.idx"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
