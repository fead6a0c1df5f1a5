package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

const maxCallbackBody = 1 << 20

// ParseCallbackPayload flattens a JSON object or urlencoded form body into
// string fields. JSON numbers keep their literal text so signatures computed
// over them stay stable.
func ParseCallbackPayload(contentType string, body []byte) (*CallbackPayload, error) {
	if len(body) > maxCallbackBody {
		return nil, fmt.Errorf("%w: body too large", ErrMalformedCallback)
	}

	payload := &CallbackPayload{ContentType: contentType, Body: body, Fields: map[string]string{}}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	trimmed := bytes.TrimSpace(body)

	if mediaType == "application/json" || (mediaType == "" && len(trimmed) > 0 && trimmed[0] == '{') {
		fields, err := flattenJSON(trimmed)
		if err != nil {
			return nil, err
		}
		payload.Fields = fields
		return payload, nil
	}

	values, err := url.ParseQuery(string(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	for k, v := range values {
		if len(v) > 0 {
			payload.Fields[k] = v[0]
		}
	}
	return payload, nil
}

func flattenJSON(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = stringify(v)
	}
	return fields, nil
}

func stringify(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func field(fields map[string]string, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(fields[name]); v != "" {
			return v
		}
	}
	return ""
}
