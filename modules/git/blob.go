package git

import (
	"fmt"
	"io"
	"os"

	"github.com/antgroup/whence/modules/plumbing"
)

// HashFile computes the blob object id of the file at path, streaming its
// contents through the same "blob <size>\x00" framing the object store uses.
func HashFile(path string) (plumbing.Hash, error) {
	fd, err := os.Open(path)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer fd.Close() // nolint
	fi, err := fd.Stat()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return HashReader(fd, fi.Size())
}

// HashReader computes the blob object id of size bytes read from r.
func HashReader(r io.Reader, size int64) (plumbing.Hash, error) {
	h := plumbing.NewHasher()
	if _, err := fmt.Fprintf(h, "blob %d\x00", size); err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := io.CopyN(h, r, size); err != nil {
		return plumbing.ZeroHash, err
	}
	return h.Sum(), nil
}
