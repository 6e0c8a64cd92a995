package git

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

const (
	formatTimeZoneOnly = "-0700"
)

// Signature represents the Author or Committer information.
type Signature struct {
	// Name represents a person name. It is an arbitrary string.
	Name string
	// Email is an email, but it cannot be assumed to be well-formed.
	Email string
	// When is the timestamp of the signature.
	When time.Time
}

// String implements the fmt.Stringer interface and formats a Signature as
// expected in the Git commit internal object format. For instance:
//
//	Taylor Blau <ttaylorr@github.com> 1494258422 -0600
func (s *Signature) String() string {
	at := s.When.Unix()
	zone := s.When.Format(formatTimeZoneOnly)

	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, at, zone)
}

// Decode decodes a byte array representing a signature to signature
func (s *Signature) Decode(line []byte) {
	emailStart := bytes.LastIndexByte(line, '<')
	emailEnd := bytes.LastIndexByte(line, '>')
	if emailStart == -1 || emailEnd == -1 || emailEnd < emailStart {
		return
	}
	if emailStart > 0 {
		s.Name = string(line[:emailStart-1])
	}
	s.Email = string(line[emailStart+1 : emailEnd])

	if emailEnd+2 >= len(line) {
		return
	}
	fields := bytes.Fields(line[emailEnd+1:])
	if len(fields) == 0 {
		return
	}
	seconds, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return
	}
	when := time.Unix(seconds, 0)
	if len(fields) >= 2 {
		if zone, err := time.Parse(formatTimeZoneOnly, string(fields[1])); err == nil {
			when = when.In(zone.Location())
		}
	}
	s.When = when
}
