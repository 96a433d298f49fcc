package attend

import (
	"encoding/json"
	"strconv"
)

// Fields is the sparse set of optional submission fields. Nil values (and
// nil typed pointers) are dropped at serialization time, so an absent field
// never reaches the wire — it is omitted entirely, not sent as null.
type Fields map[string]any

// formValue renders a field value for the multipart body. The second return
// is false when the value must be omitted.
func formValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case bool:
		return strconv.FormatBool(t), true
	case *bool:
		if t == nil {
			return "", false
		}
		return strconv.FormatBool(*t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case *int64:
		if t == nil {
			return "", false
		}
		return strconv.FormatInt(*t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
