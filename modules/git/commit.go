package git

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/antgroup/whence/modules/plumbing"
)

type Commit struct {
	// Hash of the commit object.
	Hash plumbing.Hash
	// Tree is the hash of the root tree of the commit.
	Tree plumbing.Hash
	// Parents are the hashes of the parent commits of the commit.
	Parents []plumbing.Hash
	// Author is the original author of the commit.
	Author Signature
	// Committer is the one performing the commit, might be different from
	// Author.
	Committer Signature
	// Message is the commit message, contains arbitrary text.
	Message string
}

// Decode reads the uncompressed commit object. Headers it does not know
// about, including their continuation lines, are skipped.
func (c *Commit) Decode(hash plumbing.Hash, reader io.Reader) error {
	c.Hash = hash
	r, ok := reader.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(reader)
	}
	var message strings.Builder
	var finishedHeaders bool
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		text := strings.TrimSuffix(line, "\n")
		if len(text) == 0 && !finishedHeaders {
			finishedHeaders = true
			continue
		}
		if !finishedHeaders {
			field, rest, _ := strings.Cut(text, " ")
			switch field {
			case "tree":
				oid, err := plumbing.NewHashEx(rest)
				if err != nil {
					return fmt.Errorf("error parsing tree: %s", text)
				}
				c.Tree = oid
			case "parent":
				oid, err := plumbing.NewHashEx(rest)
				if err != nil {
					return fmt.Errorf("error parsing parent: %s", text)
				}
				c.Parents = append(c.Parents, oid)
			case "author":
				c.Author.Decode([]byte(rest))
			case "committer":
				c.Committer.Decode([]byte(rest))
			default:
				// gpgsig, mergetag, encoding and friends carry no
				// structure the index needs
			}
		} else {
			_, _ = message.WriteString(line)
		}
		if readErr == io.EOF {
			break
		}
	}
	c.Message = message.String()
	return nil
}

func (c *Commit) Subject() string {
	if i := strings.IndexAny(c.Message, "\r\n"); i != -1 {
		return c.Message[0:i]
	}
	return c.Message
}
