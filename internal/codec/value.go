// Package codec converts raw SNMP wire values into semantically typed values
// using MIB syntax descriptors, and decodes composite table indices.
package codec

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the wire value shapes delivered by the transport
// collaborator. The set is closed so formatter dispatch is exhaustive.
type Kind int

const (
	// KindBytes is an opaque octet string.
	KindBytes Kind = iota
	// KindInteger covers INTEGER, Counter, Gauge and Unsigned values.
	KindInteger
	// KindDuration is a TimeTicks value converted to a duration.
	KindDuration
	// KindAddress is a protocol-native IP address.
	KindAddress
)

// RawValue is a single raw value as delivered by the transport.
type RawValue struct {
	Kind     Kind
	Bytes    []byte
	Int      int64
	Duration time.Duration
	Addr     net.IP
}

// RawRow is one raw table row: a mapping from OID suffix (relative to the
// queried table's OID) to the raw value at that column. The row's index
// travels under the reserved suffix "0".
type RawRow map[string]RawValue

// Bytes wraps an octet string.
func Bytes(b []byte) RawValue { return RawValue{Kind: KindBytes, Bytes: b} }

// Integer wraps an integer value.
func Integer(i int64) RawValue { return RawValue{Kind: KindInteger, Int: i} }

// Ticks wraps a TimeTicks duration.
func Ticks(d time.Duration) RawValue { return RawValue{Kind: KindDuration, Duration: d} }

// Address wraps a protocol-native IP address.
func Address(ip net.IP) RawValue { return RawValue{Kind: KindAddress, Addr: ip} }

// Native returns the value in its plain Go shape: []byte, int64,
// time.Duration, or a dotted-decimal address string.
func (v RawValue) Native() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindDuration:
		return v.Duration
	case KindAddress:
		return v.Addr.String()
	default:
		return v.Bytes
	}
}

// IndexString renders the value as a dotted-decimal index string, the form
// the index decoder consumes.
func (v RawValue) IndexString() string {
	switch v.Kind {
	case KindBytes:
		return string(v.Bytes)
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindAddress:
		return v.Addr.String()
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}

// EnumValue is a resolved value labeled with its enumeration name. Callers
// of the formatter must handle this shape alongside plain values.
type EnumValue struct {
	Value       any    `json:"value"`
	Enumeration string `json:"enumeration"`
}

// MACFromBytes converts a raw 6-octet MAC address into a colon-free
// lowercase hex string.
func MACFromBytes(b []byte) string {
	return hex.EncodeToString(b)
}

// MACFromDecimal converts a MAC address in dotted-decimal form (as it
// appears inside a table index) into a colon-free lowercase hex string.
func MACFromDecimal(s string) (string, error) {
	var sb strings.Builder
	for _, part := range strings.Split(s, ".") {
		octet, err := strconv.Atoi(part)
		if err != nil {
			return "", fmt.Errorf("invalid MAC octet %q: %w", part, err)
		}
		if octet < 0 || octet > 255 {
			return "", fmt.Errorf("MAC octet %d out of range", octet)
		}
		fmt.Fprintf(&sb, "%02x", octet)
	}
	return sb.String(), nil
}

// NormalizeMAC re-delimits a MAC address string with the given delimiter,
// which may be empty.
func NormalizeMAC(mac, delimiter string) string {
	text := strings.NewReplacer(":", "", "-", "").Replace(mac)
	parts := make([]string, 0, 6)
	for i := 0; i+2 <= len(text); i += 2 {
		parts = append(parts, text[i:i+2])
	}
	return strings.Join(parts, delimiter)
}

// ipFromBytes converts raw address bytes into a dotted-decimal string.
func ipFromBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, octet := range b {
		parts[i] = strconv.Itoa(int(octet))
	}
	return strings.Join(parts, ".")
}

// bigEndianInt interprets raw bytes as a big-endian unsigned integer.
func bigEndianInt(b []byte) int64 {
	var n int64
	for _, octet := range b {
		n = n<<8 | int64(octet)
	}
	return n
}
