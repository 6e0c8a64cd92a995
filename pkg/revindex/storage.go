package revindex

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/antgroup/whence/modules/binary"
	"github.com/antgroup/whence/modules/plumbing"
	"github.com/antgroup/whence/modules/streamio"
	"github.com/zeebo/blake3"
)

const (
	IndexVersion uint32 = 1

	checksumSize = 32
	// growStep bounds how much a single corrupt length field can make the
	// loader allocate before the stream runs dry.
	growStep = 1 << 20
)

var (
	indexMagic = [4]byte{'W', 'I', 'D', 'X'}
)

// Save serializes the index into w as one zstd stream: magic, then a
// BLAKE3-summed payload (version, graph count, per-graph vertices and edge
// lists, all integers fixed-width little-endian), then the 32-byte checksum.
func (m *Multi) Save(w io.Writer) error {
	zw := streamio.GetZstdWriter(w)
	defer streamio.PutZstdWriter(zw)
	bw := bufio.NewWriter(zw)
	if _, err := bw.Write(indexMagic[:]); err != nil {
		return err
	}
	h := blake3.New()
	payload := io.MultiWriter(bw, h)
	if err := binary.WriteUint32(payload, IndexVersion); err != nil {
		return err
	}
	if err := binary.WriteUint32(payload, uint32(len(m.graphs))); err != nil {
		return err
	}
	for _, g := range m.graphs {
		if err := g.encode(payload); err != nil {
			return err
		}
	}
	if _, err := bw.Write(h.Sum(nil)); err != nil {
		return err
	}
	return bw.Flush()
}

func (g *Graph) encode(w io.Writer) error {
	if err := binary.WriteUint64(w, uint64(len(g.vertices))); err != nil {
		return err
	}
	for i := range g.vertices {
		if _, err := w.Write(g.vertices[i][:]); err != nil {
			return err
		}
	}
	for _, edges := range g.edges {
		if err := binary.WriteUint64(w, uint64(len(edges))); err != nil {
			return err
		}
		for _, id := range edges {
			if err := binary.WriteUint64(w, uint64(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load reads an index previously written by Save, rebuilding each graph's
// digest table by scanning its vertices in order. Bad magic, an unknown
// version, out-of-range edges, truncation and checksum mismatches are all
// fatal: a cache file is either intact or worthless.
func Load(r io.Reader) (*Multi, error) {
	zr, err := streamio.GetZstdReader(r)
	if err != nil {
		return nil, err
	}
	defer streamio.PutZstdReader(zr)
	br := bufio.NewReader(zr)
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("read index magic: %w", err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("not an index file: magic %q", magic[:])
	}
	h := blake3.New()
	payload := io.TeeReader(br, h)
	version, err := binary.ReadUint32(payload)
	if err != nil {
		return nil, err
	}
	if version != IndexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	graphCount, err := binary.ReadUint32(payload)
	if err != nil {
		return nil, err
	}
	graphs := make([]*Graph, 0, graphCount)
	for i := uint32(0); i < graphCount; i++ {
		g, err := decodeGraph(payload)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	sum := h.Sum(nil)
	var stored [checksumSize]byte
	if _, err := io.ReadFull(br, stored[:]); err != nil {
		return nil, fmt.Errorf("read index checksum: %w", err)
	}
	if !bytes.Equal(sum, stored[:]) {
		return nil, fmt.Errorf("index checksum mismatch: want %x got %x", stored, sum)
	}
	return NewMulti(graphs), nil
}

func decodeGraph(r io.Reader) (*Graph, error) {
	count, err := binary.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	if count > uint64(^uint32(0)) {
		return nil, fmt.Errorf("invalid index file: %d vertices", count)
	}
	g := &Graph{table: make(map[plumbing.Hash]uint32, int(min(count, growStep)))}
	for i := uint64(0); i < count; i++ {
		var oid plumbing.Hash
		if _, err := io.ReadFull(r, oid[:]); err != nil {
			return nil, fmt.Errorf("read vertex %d: %w", i, err)
		}
		g.vertices = append(g.vertices, oid)
		g.table[oid] = uint32(i)
	}
	g.edges = make([][]uint32, 0, int(min(count, growStep)))
	for i := uint64(0); i < count; i++ {
		edgeCount, err := binary.ReadUint64(r)
		if err != nil {
			return nil, fmt.Errorf("read edge count of vertex %d: %w", i, err)
		}
		if edgeCount > count {
			return nil, fmt.Errorf("invalid index file: vertex %d claims %d edges", i, edgeCount)
		}
		edges := make([]uint32, 0, int(edgeCount))
		for j := uint64(0); j < edgeCount; j++ {
			id, err := binary.ReadUint64(r)
			if err != nil {
				return nil, fmt.Errorf("read edge of vertex %d: %w", i, err)
			}
			if id >= count {
				return nil, fmt.Errorf("invalid index file: edge to out-of-range vertex %d", id)
			}
			edges = append(edges, uint32(id))
		}
		g.edges = append(g.edges, edges)
	}
	return g, nil
}

// SaveFile writes the index to path through a temporary file in the same
// directory, renamed into place once complete. An interrupted save never
// leaves a half-written file under the cache path.
func SaveFile(m *Multi, path string) error {
	fd, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	name := fd.Name()
	if err := m.Save(fd); err != nil {
		_ = fd.Close()
		_ = os.Remove(name)
		return err
	}
	if err := fd.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

// LoadFile reads an index cache from path.
func LoadFile(path string) (*Multi, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close() // nolint
	return Load(bufio.NewReader(fd))
}
