package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timeKey tags a timestamp inside a JSON body. Timestamps are stored as fixed
// width UTC strings so that string order equals chronological order.
const (
	timeKey    = "__time"
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeDocument(doc Document) ([]byte, error) {
	encoded, err := encodeValue(map[string]any(doc))
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

func encodeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case time.Time:
		return map[string]any{timeKey: formatTime(val)}, nil
	case Document:
		return encodeValue(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			enc, err := encodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = enc
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			enc, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported document value type %T", v)
	}
}

func decodeDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return Document{}, nil
	}

	out := make(Document, len(body))
	for k, v := range body {
		out[k] = decodeValue(v)
	}
	return out, nil
}

func decodeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		if len(val) == 1 {
			if raw, ok := val[timeKey].(string); ok {
				if t, err := time.Parse(timeLayout, raw); err == nil {
					return t
				}
			}
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = decodeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = decodeValue(item)
		}
		return out
	default:
		return val
	}
}
