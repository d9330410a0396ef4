// Package optset implements an additive configuration bit-set, used in this
// module for the bind-time socket options (inet/tcp.SocketOptions), with the
// teacher's own generic Bits[Choices] pattern
// (fs/bits_test.go, instantiated by backend/onedrive/metadata.go's
// rwChoice): a single generic type gives every bit-set String/Set/Help for
// free, instead of hand-rolling a stringer per option group.
package optset

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// BitsChoicesInfo names one bit value for display and parsing.
type BitsChoicesInfo struct {
	Bit  uint64
	Name string
}

// Choices is implemented by a (normally empty) type parameter that supplies
// the named bit values for a particular Bits[T] instantiation.
type Choices interface {
	Choices() []BitsChoicesInfo
}

// Bits is a set of named, additive flags backed by a uint64. Instantiate it
// with an empty struct implementing Choices, as fs/bits_test.go does.
type Bits[C Choices] uint64

var _ fmt.Stringer = Bits[Choices](0)

func (b Bits[C]) choices() []BitsChoicesInfo {
	var zero C
	return zero.Choices()
}

// String renders the set bits as a comma-separated list of names, in
// declaration order, with any unrecognised bits rendered as Unknown-0x...
func (b Bits[C]) String() string {
	if b == 0 {
		for _, c := range b.choices() {
			if c.Bit == 0 {
				return c.Name
			}
		}
		return "0"
	}
	var parts []string
	remaining := uint64(b)
	for _, c := range b.choices() {
		if c.Bit != 0 && remaining&c.Bit == c.Bit {
			parts = append(parts, c.Name)
			remaining &^= c.Bit
		}
	}
	if remaining != 0 {
		parts = append(parts, fmt.Sprintf("Unknown-0x%x", remaining))
	}
	return strings.Join(parts, ",")
}

// Help lists every known choice, for use in flag usage strings.
func (b Bits[C]) Help() string {
	var names []string
	for _, c := range b.choices() {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// Type satisfies pflag.Value.
func (b Bits[C]) Type() string { return "Bits" }

// IsSet reports whether every bit in mask is set.
func (b Bits[C]) IsSet(mask Bits[C]) bool {
	return uint64(b)&uint64(mask) == uint64(mask)
}

// Set parses a comma-separated list of choice names (case-insensitive),
// replacing the receiver's value. It matches the teacher's Bits.Set exactly,
// including its error message shape.
func (b *Bits[C]) Set(s string) error {
	var result Bits[C]
	choices := b.choices()
	if s != "" {
		for _, name := range strings.Split(s, ",") {
			name = strings.TrimSpace(name)
			found := false
			for _, c := range choices {
				if strings.EqualFold(c.Name, name) {
					result |= Bits[C](c.Bit)
					found = true
					break
				}
			}
			if !found {
				var known []string
				for _, c := range choices {
					known = append(known, c.Name)
				}
				return fmt.Errorf("invalid choice %q from: %s", name, strings.Join(known, ", "))
			}
		}
	}
	*b = result
	return nil
}

// Scan implements fmt.Scanner, trimming surrounding whitespace before
// delegating to Set.
func (b *Bits[C]) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(r rune) bool { return r != ' ' && r != '\t' && r != '\n' })
	if err != nil {
		return err
	}
	return b.Set(strings.TrimSpace(string(token)))
}

// MarshalJSON renders the set as its String() form, quoted.
func (b Bits[C]) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(b.String())), nil
}

// UnmarshalJSON accepts either a quoted comma-separated name list or a bare
// integer bitmask.
func (b *Bits[C]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		return b.Set(s)
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return err
	}
	*b = Bits[C](n)
	return nil
}
