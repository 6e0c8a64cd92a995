package git

import (
	"errors"
	"io"
)

var (
	// ErrInvalidType is returned when an invalid object type is provided.
	ErrInvalidType = errors.New("invalid object type")
)

// ObjectType internal object type
// Integer values from 0 to 4 map to those exposed by git.
type ObjectType int8

const (
	InvalidObject ObjectType = 0
	CommitObject  ObjectType = 1
	TreeObject    ObjectType = 2
	BlobObject    ObjectType = 3
	TagObject     ObjectType = 4
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	default:
		return "unknown"
	}
}

// ParseObjectType parses a string representation of ObjectType. It returns an
// error on parse failure.
func ParseObjectType(value string) (typ ObjectType, err error) {
	switch value {
	case "commit":
		typ = CommitObject
	case "tree":
		typ = TreeObject
	case "blob":
		typ = BlobObject
	case "tag":
		typ = TagObject
	default:
		err = ErrInvalidType
	}
	return
}

// Object is a raw object read off the cat-file stream.
type Object struct {
	// Hash of the object (hex).
	Hash string
	// Size is the total uncompressed size of the object's contents.
	Size int64
	// Type of the object
	Type ObjectType
	// dataReader is a reader that yields the uncompressed object contents.
	// It may only be read once.
	dataReader io.Reader
}

func (o *Object) Read(p []byte) (int, error) {
	return o.dataReader.Read(p)
}

func (o *Object) Discard() {
	if o.dataReader != nil {
		_, _ = io.Copy(io.Discard, o.dataReader)
	}
}
