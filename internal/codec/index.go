package codec

import (
	"strconv"
	"strings"

	"github.com/geekxflood/common/logging"
	"github.com/geekxflood/proteus/internal/schema"
)

// Index component widths in dotted-decimal components.
const (
	macIndexWidth  = 6
	inetIndexWidth = 4
)

// DecodeIndex decomposes a raw dotted-decimal index value into named index
// fields following the table's composite index specification. Components
// are consumed left-to-right: a macaddress-typed field consumes six
// components, an inetaddress-typed field four, anything else one integer
// component. A failing field is logged with full context and stops further
// decoding; already-decoded fields are returned.
func DecodeIndex(raw string, indices []schema.IndexRef, store *schema.Store, logger logging.Logger) map[string]any {
	fields := make(map[string]any)
	if raw == "" || len(indices) == 0 {
		return fields
	}

	parts := strings.Split(raw, ".")
	pos := 0

	for _, ref := range indices {
		width := 1
		if syntax, ok := store.LookupSyntax(ref.Module, ref.Object); ok &&
			strings.EqualFold(syntax.Class, schema.ClassType) {
			switch strings.ToLower(syntax.Type) {
			case "macaddress":
				width = macIndexWidth
			case "inetaddress":
				width = inetIndexWidth
			}
		}

		if pos+width > len(parts) {
			logger.Error("index value too short",
				"value", raw,
				"field", ref.Object,
				"index_spec", indices)
			return fields
		}

		segment := parts[pos : pos+width]
		switch width {
		case macIndexWidth:
			mac, err := MACFromDecimal(strings.Join(segment, "."))
			if err != nil {
				logger.Error("failed to parse MAC index component",
					"value", raw,
					"field", ref.Object,
					"index_spec", indices,
					"error", err.Error())
				return fields
			}
			fields[ref.Object] = mac

		case inetIndexWidth:
			fields[ref.Object] = strings.Join(segment, ".")

		default:
			n, err := strconv.Atoi(segment[0])
			if err != nil {
				logger.Error("failed to parse integer index component",
					"value", raw,
					"field", ref.Object,
					"index_spec", indices,
					"error", err.Error())
				return fields
			}
			fields[ref.Object] = n
		}

		pos += width
	}

	return fields
}
