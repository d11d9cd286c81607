package config

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that reads and writes as a human-readable size.
type ByteSize uint64

// ParseByteSize parses sizes such as "64KiB", "1 MB", or "4096".
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

// String formats the size with binary units, e.g. "64 KiB".
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Int returns the size as an int.
func (b ByteSize) Int() int {
	return int(b)
}

// MarshalYAML writes the human-readable form when it parses back to the
// same value, and the raw byte count otherwise.
func (b ByteSize) MarshalYAML() (any, error) {
	s := b.String()
	if parsed, err := ParseByteSize(s); err == nil && parsed == b {
		return s, nil
	}
	return uint64(b), nil
}

// UnmarshalYAML accepts both human-readable sizes and plain numbers.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseByteSize(node.Value)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
