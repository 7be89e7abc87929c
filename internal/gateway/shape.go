package gateway

import (
	"encoding/json"
	"fmt"
)

// payloadShape describes a JSON document by structure only: object keys are kept,
// scalar values are replaced by their type, arrays by their length. Credentials and
// document text never reach the log this way.
func payloadShape(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Sprintf("non-json[%d bytes]", len(raw))
	}
	return describe(v, 0)
}

func describe(v interface{}, depth int) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		if depth >= 2 {
			return fmt.Sprintf("object[%d keys]", len(t))
		}
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			out[k] = describe(child, depth+1)
		}
		return out
	case []interface{}:
		return fmt.Sprintf("array[%d]", len(t))
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
