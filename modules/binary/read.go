package binary

import (
	"encoding/binary"
	"io"
)

// Read reads structured LittleEndian data from r into data
func Read(r io.Reader, data ...any) error {
	for _, v := range data {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	return nil
}

// ReadUint64 reads 8 bytes and returns them as a LittleEndian uint64
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadUint32 reads 4 bytes and returns them as a LittleEndian uint32
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}
