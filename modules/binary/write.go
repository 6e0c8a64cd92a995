package binary

import (
	"encoding/binary"
	"io"
)

// Write writes the binary representation of data into w, using LittleEndian
// order
// https://golang.org/pkg/encoding/binary/#Write
func Write(w io.Writer, data ...any) error {
	for _, v := range data {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	return nil
}

// WriteUint64 writes the binary representation of a uint64 into w, in
// LittleEndian order
func WriteUint64(w io.Writer, value uint64) error {
	return binary.Write(w, binary.LittleEndian, value)
}

// WriteUint32 writes the binary representation of a uint32 into w, in
// LittleEndian order
func WriteUint32(w io.Writer, value uint32) error {
	return binary.Write(w, binary.LittleEndian, value)
}
