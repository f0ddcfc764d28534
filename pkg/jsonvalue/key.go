package jsonvalue

import (
	"encoding/json"
)

// CoerceString converts a value to the string used to identify it as an array item. Scalars
// coerce the way a loosely typed runtime would (`1`, `true`, `null`, strings verbatim), compound
// values use their canonical JSON so distinct records get distinct keys.
func CoerceString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		buf, err := json.Marshal(v.n)
		if err != nil {
			return "NaN"
		}
		return string(buf)
	case KindString:
		return v.s
	default:
		return v.String()
	}
}
