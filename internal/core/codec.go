package core

import (
	"bytes"
	"encoding/json"
)

// Keys the host did not send stay absent on encode unless they were edited.
// A JSON null is kept as it came in.

func (o Options) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(o.extra)+6)
	for k, v := range o.extra {
		out[k] = v
	}
	if o.set&hasURL != 0 || o.URL != "" {
		out["url"] = o.URL
	}
	if o.set&hasDatabase != 0 || o.Database != "" {
		out["database"] = o.Database
	}
	if o.set&hasUser != 0 || o.User != "" {
		out["user"] = o.User
	}
	if o.set&hasJSONData != 0 || !o.JSONData.isZero() {
		out["jsonData"] = o.JSONData
	}
	if o.SecureJSONData != nil {
		out["secureJsonData"] = o.SecureJSONData
	}
	if o.SecureJSONFields != nil {
		out["secureJsonFields"] = o.SecureJSONFields
	}
	return json.Marshal(out)
}

func (o *Options) UnmarshalJSON(b []byte) error {
	raw, err := decodeObject(b)
	if err != nil {
		return err
	}

	var decoded Options
	fields := []struct {
		key string
		dst interface{}
		bit fieldMask
	}{
		{"url", &decoded.URL, hasURL},
		{"database", &decoded.Database, hasDatabase},
		{"user", &decoded.User, hasUser},
		{"jsonData", &decoded.JSONData, hasJSONData},
		{"secureJsonData", &decoded.SecureJSONData, 0},
		{"secureJsonFields", &decoded.SecureJSONFields, 0},
	}
	for _, f := range fields {
		found, err := take(raw, f.key, f.dst)
		if err != nil {
			return err
		}
		if found {
			decoded.set |= f.bit
		}
	}
	decoded.extra = raw

	*o = decoded
	return nil
}

func (d JSONData) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.extra)+1)
	for k, v := range d.extra {
		out[k] = v
	}
	if d.MaxResults != nil {
		out["maxResults"] = *d.MaxResults
	}
	return json.Marshal(out)
}

func (d *JSONData) UnmarshalJSON(b []byte) error {
	raw, err := decodeObject(b)
	if err != nil {
		return err
	}

	var decoded JSONData
	if _, err := take(raw, "maxResults", &decoded.MaxResults); err != nil {
		return err
	}
	decoded.extra = raw

	*d = decoded
	return nil
}

func (q Query) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(q.extra)+4)
	for k, v := range q.extra {
		out[k] = v
	}
	if q.set&hasRefID != 0 || q.RefID != "" {
		out["refId"] = q.RefID
	}
	if q.set&hasHide != 0 || q.Hide {
		out["hide"] = q.Hide
	}
	if q.Datasource != nil {
		out["datasource"] = q.Datasource
	}
	if q.QueryText != nil {
		out["queryText"] = *q.QueryText
	}
	return json.Marshal(out)
}

func (q *Query) UnmarshalJSON(b []byte) error {
	raw, err := decodeObject(b)
	if err != nil {
		return err
	}

	var decoded Query
	found, err := take(raw, "refId", &decoded.RefID)
	if err != nil {
		return err
	}
	if found {
		decoded.set |= hasRefID
	}
	if found, err = take(raw, "hide", &decoded.Hide); err != nil {
		return err
	}
	if found {
		decoded.set |= hasHide
	}
	if _, err := take(raw, "datasource", &decoded.Datasource); err != nil {
		return err
	}
	if _, err := take(raw, "queryText", &decoded.QueryText); err != nil {
		return err
	}
	decoded.extra = raw

	*q = decoded
	return nil
}

func decodeObject(b []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = make(map[string]json.RawMessage)
	}
	return raw, nil
}

// take decodes raw[key] into dst and removes the key. A missing key leaves
// dst at its zero value. A JSON null also leaves dst untouched and stays in
// raw, so it is written back as null.
func take(raw map[string]json.RawMessage, key string, dst interface{}) (bool, error) {
	v, ok := raw[key]
	if !ok {
		return false, nil
	}
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return false, nil
	}
	delete(raw, key)
	return true, json.Unmarshal(v, dst)
}
