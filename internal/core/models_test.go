package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const persistedOptions = `{
	"id": 7,
	"uid": "mongo-prod",
	"name": "Mongo",
	"access": "proxy",
	"url": "mongodb://db:27017",
	"database": "metrics",
	"user": "grafana",
	"jsonData": {"maxResults": 500, "tlsSkipVerify": true},
	"secureJsonFields": {"password": true}
}`

func decodeOptions(t *testing.T, s string) Options {
	t.Helper()
	var o Options
	require.NoError(t, json.Unmarshal([]byte(s), &o))
	return o
}

func TestOptions_DecodeKnownFields(t *testing.T) {
	o := decodeOptions(t, persistedOptions)

	assert.Equal(t, "mongodb://db:27017", o.URL)
	assert.Equal(t, "metrics", o.Database)
	assert.Equal(t, "grafana", o.User)
	require.NotNil(t, o.JSONData.MaxResults)
	assert.Equal(t, Limit(500), *o.JSONData.MaxResults)
	assert.True(t, o.SecureJSONFields["password"])
	assert.Nil(t, o.SecureJSONData)
}

func TestOptions_RoundTripKeepsHostFields(t *testing.T) {
	o := decodeOptions(t, persistedOptions)

	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, persistedOptions, string(b))
}

func TestOptions_SingleFieldEdits(t *testing.T) {
	base := decodeOptions(t, persistedOptions)

	tests := []struct {
		name  string
		edit  func(Options) Options
		patch func(map[string]interface{})
	}{
		{"url", func(o Options) Options { return o.WithURL("mongodb://other:27017") },
			func(m map[string]interface{}) { m["url"] = "mongodb://other:27017" }},
		{"database", func(o Options) Options { return o.WithDatabase("logs") },
			func(m map[string]interface{}) { m["database"] = "logs" }},
		{"user", func(o Options) Options { return o.WithUser("reader") },
			func(m map[string]interface{}) { m["user"] = "reader" }},
		{"maxResults", func(o Options) Options { return o.WithMaxResults(1000) },
			func(m map[string]interface{}) { m["jsonData"].(map[string]interface{})["maxResults"] = float64(1000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(persistedOptions), &want))
			tt.patch(want)

			got := tt.edit(base)

			b, err := json.Marshal(got)
			require.NoError(t, err)
			var gotMap map[string]interface{}
			require.NoError(t, json.Unmarshal(b, &gotMap))
			assert.Equal(t, want, gotMap)
			assert.Equal(t, base.SecureJSONData, got.SecureJSONData)
			assert.Equal(t, base.SecureJSONFields, got.SecureJSONFields)
		})
	}
}

func TestOptions_EditsDoNotMutateInput(t *testing.T) {
	base := decodeOptions(t, persistedOptions).WithPassword("old")
	before, err := json.Marshal(base)
	require.NoError(t, err)

	_ = base.WithPassword("new")
	_ = base.WithPasswordReset()
	_ = base.WithMaxResults(1)
	_ = base.WithURL("x")

	after, err := json.Marshal(base)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Equal(t, "old", base.SecureJSONData["password"])
	assert.True(t, base.SecureJSONFields["password"])
	assert.Equal(t, Limit(500), *base.JSONData.MaxResults)
}

func TestOptions_WithPasswordOnlyTouchesSecureData(t *testing.T) {
	base := decodeOptions(t, persistedOptions)

	got := base.WithPassword("s3cret")

	assert.Equal(t, "s3cret", got.SecureJSONData["password"])
	assert.Equal(t, base.URL, got.URL)
	assert.Equal(t, base.Database, got.Database)
	assert.Equal(t, base.User, got.User)
	assert.Equal(t, base.JSONData, got.JSONData)
	assert.Equal(t, base.SecureJSONFields, got.SecureJSONFields)
}

func TestOptions_WithPasswordReset(t *testing.T) {
	tests := []struct {
		name string
		base Options
	}{
		{"configured", decodeOptions(t, persistedOptions)},
		{"pending", Options{}.WithPassword("typed")},
		{"empty", Options{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base.WithPasswordReset()

			v, ok := got.SecureJSONFields["password"]
			assert.True(t, ok)
			assert.False(t, v)
			assert.Equal(t, "", got.SecureJSONData["password"])
			assert.Equal(t, PasswordUnset, got.Password().State)
		})
	}
}

func TestOptions_Settings(t *testing.T) {
	s := decodeOptions(t, persistedOptions).Settings()

	assert.Equal(t, "mongodb://db:27017", s.Address)
	assert.Equal(t, "metrics", s.Database)
	assert.Equal(t, "grafana", s.User)
	assert.Equal(t, Limit(500), *s.MaxResults)
	assert.Equal(t, PasswordConfigured, s.Password.State)
}

func TestOptions_NaNMaxResultsEncodesAsNull(t *testing.T) {
	o := Options{}.WithMaxResults(ParseLimit("abc"))
	require.True(t, o.JSONData.MaxResults.IsNaN())

	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"jsonData":{"maxResults":null}`)

	var back Options
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Nil(t, back.JSONData.MaxResults)
}

func TestQuery_RoundTripKeepsHostFields(t *testing.T) {
	in := `{"refId":"A","key":"Q-1","datasource":{"type":"mongo","uid":"u1"},"queryText":"db.c.find()","intervalMs":1000}`

	var q Query
	require.NoError(t, json.Unmarshal([]byte(in), &q))
	assert.Equal(t, "A", q.RefID)
	assert.Equal(t, "db.c.find()", q.Text())
	assert.Equal(t, &DataSourceRef{Type: "mongo", UID: "u1"}, q.Datasource)

	b, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(b))
}

func TestQuery_MissingTextIsNotEmptyText(t *testing.T) {
	var missing, empty Query
	require.NoError(t, json.Unmarshal([]byte(`{"refId":"A"}`), &missing))
	require.NoError(t, json.Unmarshal([]byte(`{"refId":"A","queryText":""}`), &empty))

	assert.Nil(t, missing.QueryText)
	require.NotNil(t, empty.QueryText)
	assert.Equal(t, DefaultQueryText, missing.WithDefaults().Text())
	assert.Equal(t, "", empty.WithDefaults().Text())
}

func TestQuery_WithQueryTextCopies(t *testing.T) {
	base := Query{RefID: "A"}.WithQueryText("db.a.find()")

	got := base.WithQueryText("db.b.find()")

	assert.Equal(t, "db.a.find()", base.Text())
	assert.Equal(t, "db.b.find()", got.Text())
	assert.Equal(t, "A", got.RefID)
}

func TestOptions_SparseInputStaysSparse(t *testing.T) {
	in := `{"url":"u","jsonData":{}}`
	o := decodeOptions(t, in)

	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(b))

	b, err = json.Marshal(o.WithDatabase("d"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"u","database":"d","jsonData":{}}`, string(b))
}

func TestOptions_EmptyObjectStaysEmpty(t *testing.T) {
	b, err := json.Marshal(decodeOptions(t, `{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestOptions_EditedEmptyValueIsWritten(t *testing.T) {
	b, err := json.Marshal(decodeOptions(t, `{"url":"u"}`).WithUser(""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"u","user":""}`, string(b))
}

func TestOptions_NullsKept(t *testing.T) {
	in := `{"url":null,"user":"grafana","secureJsonData":null,"jsonData":{"maxResults":null}}`

	b, err := json.Marshal(decodeOptions(t, in))
	require.NoError(t, err)
	assert.JSONEq(t, in, string(b))

	b, err = json.Marshal(decodeOptions(t, in).WithURL("mongodb://x").WithMaxResults(10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"mongodb://x","user":"grafana","secureJsonData":null,"jsonData":{"maxResults":10}}`, string(b))
}

func TestQuery_HideFalseKept(t *testing.T) {
	in := `{"hide":false,"queryText":"db.c.find({x: $var})","key":"Q-1"}`

	var q Query
	require.NoError(t, json.Unmarshal([]byte(in), &q))
	b, err := json.Marshal(q.WithQueryText("db.c.find({x: 5})"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"hide":false,"queryText":"db.c.find({x: 5})","key":"Q-1"}`, string(b))
}

func TestQuery_LiteralEncoding(t *testing.T) {
	b, err := json.Marshal(Query{}.WithQueryText("db.c.find()"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"queryText":"db.c.find()"}`, string(b))

	b, err = json.Marshal(Query{RefID: "B", Hide: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"refId":"B","hide":true}`, string(b))
}
