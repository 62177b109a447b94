package codec

import (
	"strings"
	"unicode/utf8"

	"github.com/geekxflood/common/logging"
	"github.com/geekxflood/proteus/internal/schema"
)

// FormatField converts a single raw wire value into a semantically typed
// value using the object's syntax descriptor. The result is either the
// pass-through native value, a decoded string/bool/integer, or an EnumValue
// wrapper. Decode failures are logged and the raw value kept; they never
// fail the surrounding row.
func FormatField(raw RawValue, syntax *schema.Syntax, logger logging.Logger) any {
	if syntax == nil || syntax.Class == "" || syntax.Type == "" {
		return raw.Native()
	}
	if !strings.EqualFold(syntax.Class, schema.ClassType) {
		return raw.Native()
	}

	value := raw.Native()

	switch strings.ToLower(syntax.Type) {
	case "macaddress":
		value = MACFromBytes(raw.Bytes)

	case "inetaddress", "ipaddress":
		if raw.Kind == KindAddress {
			value = raw.Addr.String()
		} else {
			value = ipFromBytes(raw.Bytes)
		}

	case "truthvalue":
		value = raw.Kind == KindInteger && raw.Int == 1

	case "bits":
		// Named-bit match short-circuits; constraints are not consulted.
		n := bigEndianInt(raw.Bytes)
		for name, bit := range syntax.Bits {
			if int64(bit) == n {
				return EnumValue{Value: raw.Native(), Enumeration: name}
			}
		}
		return raw.Native()

	default:
		switch raw.Kind {
		case KindInteger, KindDuration, KindAddress:
			// Already a plain value, keep as-is.
		default:
			if utf8.Valid(raw.Bytes) {
				value = string(raw.Bytes)
			} else {
				logger.Warn("failed to decode value as UTF-8", "type", syntax.Type, "bytes", raw.Bytes)
			}
		}
	}

	if syntax.Constraints != nil && len(syntax.Constraints.Enumeration) > 0 {
		if n, ok := value.(int64); ok {
			for label, code := range syntax.Constraints.Enumeration {
				if code == n {
					return EnumValue{Value: value, Enumeration: label}
				}
			}
		}
	}

	return value
}
