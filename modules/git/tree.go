package git

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antgroup/whence/modules/plumbing"
)

// We define these here instead of using the system ones because not all
// operating systems use the traditional values.  For example, zOS uses
// different values.
const (
	sIFMT      = FileMode(0170000)
	sIFREG     = FileMode(0100000)
	sIFDIR     = FileMode(0040000)
	sIFLNK     = FileMode(0120000)
	sIFGITLINK = FileMode(0160000)
)

// FileMode is the file mode of a tree entry on disk.
type FileMode int32

func (m FileMode) String() string {
	return fmt.Sprintf("%06o", int32(m))
}

// Tree encapsulates a Git tree object.
type Tree struct {
	// Hash of the tree object.
	Hash plumbing.Hash
	// Entries is the list of entries held by this tree.
	Entries []*TreeEntry
	size    int64
}

// TreeEntry encapsulates information about a single tree entry in a tree
// listing.
type TreeEntry struct {
	// Name is the entry name relative to the tree in which this entry is
	// contained.
	Name string
	// Hash is the object ID for this tree entry.
	Hash plumbing.Hash
	// Filemode is the filemode of this tree entry on disk.
	Filemode FileMode
}

func (t *Tree) Size() int64 {
	return t.size
}

// Decode decodes the uncompressed tree being read. It returns the number of uncompressed bytes being consumed off of the
// stream, which should be strictly equal to the size given.
//
// If any error was encountered along the way, that will be returned, along with
// the number of bytes read up to that point.
func (t *Tree) Decode(hash plumbing.Hash, from io.Reader, size int64) (n int, err error) {
	t.Hash = hash
	t.size = size
	buf := bufio.NewReader(from)
	var entries []*TreeEntry
	for {
		modes, err := buf.ReadString(' ')
		if err != nil {
			if err == io.EOF {
				break
			}
			return n, err
		}
		n += len(modes)
		modes = strings.TrimSuffix(modes, " ")

		mode, _ := strconv.ParseInt(modes, 8, 32)

		fname, err := buf.ReadString('\x00')
		if err != nil {
			return n, err
		}
		n += len(fname)
		fname = strings.TrimSuffix(fname, "\x00")

		var sha plumbing.Hash
		if _, err = io.ReadFull(buf, sha[:]); err != nil {
			return n, err
		}
		n += plumbing.HASH_DIGEST_SIZE

		entries = append(entries, &TreeEntry{
			Name:     fname,
			Hash:     sha,
			Filemode: FileMode(mode),
		})
	}

	t.Entries = entries

	return n, nil
}

// Type is the object type of the entry: a blob (regular file or symbolic
// link), a sub-tree, or a gitlink commit.
func (e *TreeEntry) Type() ObjectType {
	switch e.Filemode & sIFMT {
	case sIFREG:
		return BlobObject
	case sIFDIR:
		return TreeObject
	case sIFLNK:
		return BlobObject
	case sIFGITLINK:
		return CommitObject
	default:
		return InvalidObject
	}
}

// IsTree returns true if the given TreeEntry refers to a sub-tree.
func (e *TreeEntry) IsTree() bool {
	return e.Filemode&sIFMT == sIFDIR
}

// IsLink returns true if the given TreeEntry is a blob which represents a
// symbolic link (i.e., with a filemode of 0120000).
func (e *TreeEntry) IsLink() bool {
	return e.Filemode&sIFMT == sIFLNK
}

// Pretty tree
func (t *Tree) Pretty(w io.Writer) error {
	for _, e := range t.Entries {
		if _, err := fmt.Fprintf(w, "%s %s %s %s\n", e.Filemode, e.Type(), e.Hash, e.Name); err != nil {
			return err
		}
	}
	return nil
}
