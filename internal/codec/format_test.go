package codec

import (
	"net"
	"testing"
	"time"

	"github.com/geekxflood/common/logging"

	"github.com/geekxflood/proteus/internal/schema"
)

func testLogger(t *testing.T) logging.Logger {
	t.Helper()

	logger, _, err := logging.NewLogger(logging.Config{
		Level:  "error",
		Format: "json",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func typed(name string) *schema.Syntax {
	return &schema.Syntax{Class: schema.ClassType, Type: name}
}

func TestFormatFieldNilSyntax(t *testing.T) {
	logger := testLogger(t)

	v := FormatField(Integer(42), nil, logger)
	if v != int64(42) {
		t.Errorf("Expected raw integer pass-through, got %v", v)
	}

	v = FormatField(Bytes([]byte("x")), &schema.Syntax{}, logger)
	if b, ok := v.([]byte); !ok || string(b) != "x" {
		t.Errorf("Expected raw bytes pass-through, got %v", v)
	}
}

func TestFormatFieldMACAddress(t *testing.T) {
	raw := Bytes([]byte{0x00, 0x1A, 0x2B, 0x3C, 0x4D, 0x5E})

	v := FormatField(raw, typed("MacAddress"), testLogger(t))
	if v != "001a2b3c4d5e" {
		t.Errorf("Expected 001a2b3c4d5e, got %v", v)
	}
}

func TestFormatFieldInetAddress(t *testing.T) {
	logger := testLogger(t)

	v := FormatField(Bytes([]byte{192, 168, 1, 10}), typed("InetAddress"), logger)
	if v != "192.168.1.10" {
		t.Errorf("Expected 192.168.1.10, got %v", v)
	}

	// Protocol-native addresses keep their string form.
	v = FormatField(Address(net.ParseIP("10.0.0.1")), typed("IpAddress"), logger)
	if v != "10.0.0.1" {
		t.Errorf("Expected 10.0.0.1, got %v", v)
	}
}

func TestFormatFieldTruthValue(t *testing.T) {
	logger := testLogger(t)

	if v := FormatField(Integer(1), typed("TruthValue"), logger); v != true {
		t.Errorf("Expected true for 1, got %v", v)
	}
	if v := FormatField(Integer(2), typed("TruthValue"), logger); v != false {
		t.Errorf("Expected false for 2, got %v", v)
	}
	if v := FormatField(Integer(0), typed("TruthValue"), logger); v != false {
		t.Errorf("Expected false for 0, got %v", v)
	}
}

func TestFormatFieldEnumeration(t *testing.T) {
	syntax := &schema.Syntax{
		Class: schema.ClassType,
		Type:  "INTEGER",
		Constraints: &schema.Constraints{
			Enumeration: map[string]int64{"up": 1, "down": 2},
		},
	}
	logger := testLogger(t)

	v := FormatField(Integer(2), syntax, logger)
	enum, ok := v.(EnumValue)
	if !ok {
		t.Fatalf("Expected EnumValue, got %T", v)
	}
	if enum.Value != int64(2) || enum.Enumeration != "down" {
		t.Errorf("Unexpected enum value: %+v", enum)
	}

	// Values outside the enumeration stay plain.
	if v := FormatField(Integer(7), syntax, logger); v != int64(7) {
		t.Errorf("Expected plain 7, got %v", v)
	}
}

func TestFormatFieldBits(t *testing.T) {
	syntax := &schema.Syntax{
		Class: schema.ClassType,
		Type:  "BITS",
		Bits:  map[string]int{"primary": 1, "secondary": 2},
	}
	logger := testLogger(t)

	v := FormatField(Bytes([]byte{0x02}), syntax, logger)
	enum, ok := v.(EnumValue)
	if !ok {
		t.Fatalf("Expected EnumValue, got %T", v)
	}
	if enum.Enumeration != "secondary" {
		t.Errorf("Expected secondary, got %s", enum.Enumeration)
	}

	// Values with no matching named bit keep the raw bytes.
	v = FormatField(Bytes([]byte{0x09}), syntax, logger)
	if b, ok := v.([]byte); !ok || len(b) != 1 || b[0] != 0x09 {
		t.Errorf("Expected raw bytes for unnamed bit pattern, got %v", v)
	}
}

func TestFormatFieldStringDecoding(t *testing.T) {
	logger := testLogger(t)

	v := FormatField(Bytes([]byte("GigabitEthernet0/1")), typed("DisplayString"), logger)
	if v != "GigabitEthernet0/1" {
		t.Errorf("Expected decoded string, got %v", v)
	}

	// Invalid UTF-8 keeps the raw bytes.
	invalid := []byte{0xff, 0xfe, 0x01}
	v = FormatField(Bytes(invalid), typed("DisplayString"), logger)
	if b, ok := v.([]byte); !ok || len(b) != 3 {
		t.Errorf("Expected raw bytes for invalid UTF-8, got %v", v)
	}
}

func TestFormatFieldPlainKindsPassThrough(t *testing.T) {
	logger := testLogger(t)

	if v := FormatField(Integer(99), typed("Integer32"), logger); v != int64(99) {
		t.Errorf("Expected 99, got %v", v)
	}
	if v := FormatField(Ticks(42*time.Second), typed("TimeTicks"), logger); v != 42*time.Second {
		t.Errorf("Expected 42s, got %v", v)
	}
}

func TestMACFromDecimal(t *testing.T) {
	mac, err := MACFromDecimal("0.26.43.60.77.94")
	if err != nil {
		t.Fatalf("MACFromDecimal failed: %v", err)
	}
	if mac != "001a2b3c4d5e" {
		t.Errorf("Expected 001a2b3c4d5e, got %s", mac)
	}

	if _, err := MACFromDecimal("0.26.bogus"); err == nil {
		t.Error("Expected error for non-numeric octet")
	}
	if _, err := MACFromDecimal("0.26.300"); err == nil {
		t.Error("Expected error for out-of-range octet")
	}
}

func TestNormalizeMAC(t *testing.T) {
	tests := []struct {
		mac       string
		delimiter string
		want      string
	}{
		{"001a2b3c4d5e", ":", "00:1a:2b:3c:4d:5e"},
		{"00:1a:2b:3c:4d:5e", "-", "00-1a-2b-3c-4d-5e"},
		{"00-1a-2b-3c-4d-5e", "", "001a2b3c4d5e"},
	}

	for _, tt := range tests {
		if got := NormalizeMAC(tt.mac, tt.delimiter); got != tt.want {
			t.Errorf("NormalizeMAC(%q, %q) = %q, want %q", tt.mac, tt.delimiter, got, tt.want)
		}
	}
}
