package core

import (
	"encoding/json"
	"time"
)

// DefaultQueryText is shown for a query that has no text yet.
const DefaultQueryText = "db.mycollection.find()"

const passwordKey = "password"

// Options is the data source settings object persisted by the host.
// Host-owned fields this layer does not interpret (id, uid, name, access, ...)
// are carried through encode/decode untouched.
type Options struct {
	URL              string
	Database         string
	User             string
	JSONData         JSONData
	SecureJSONData   map[string]string
	SecureJSONFields map[string]bool

	set   fieldMask
	extra map[string]json.RawMessage
}

// JSONData holds the non-secret plugin specific settings.
type JSONData struct {
	MaxResults *Limit

	extra map[string]json.RawMessage
}

// DataSourceRef identifies the data source a query is sent to.
type DataSourceRef struct {
	Type string `json:"type,omitempty"`
	UID  string `json:"uid,omitempty"`
}

// Query is one query panel target. QueryText is nil when the host never set it,
// which is different from an empty string.
type Query struct {
	RefID      string
	Hide       bool
	Datasource *DataSourceRef
	QueryText  *string

	set   fieldMask
	extra map[string]json.RawMessage
}

// fieldMask records the keys the host sent or an editor wrote. A key outside
// the mask is encoded only when its value is not the zero value.
type fieldMask uint8

const (
	hasURL fieldMask = 1 << iota
	hasDatabase
	hasUser
	hasJSONData
	hasRefID
	hasHide
)

// ConnectionSettings is the domain view of Options used to render the settings form.
type ConnectionSettings struct {
	Address    string
	Database   string
	User       string
	MaxResults *Limit
	Password   Password
}

type QueryDataRequest struct {
	RequestID string  `json:"-"`
	Queries   []Query `json:"queries"`
	From      string  `json:"from,omitempty"`
	To        string  `json:"to,omitempty"`
}

// QueryDataResponse carries the host's per-refId results verbatim.
type QueryDataResponse struct {
	Results map[string]json.RawMessage `json:"results"`
}

type HealthResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AuditLog struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
	DatasourceUID string    `json:"datasource_uid"`
	RefID         string    `json:"ref_id"`
	QueryText     string    `json:"query_text"`
	DurationMs    int64     `json:"duration_ms"`
	Status        string    `json:"status"`
	ErrorMessage  string    `json:"error_message"`
}

// Settings returns the domain view of the options.
func (o Options) Settings() ConnectionSettings {
	return ConnectionSettings{
		Address:    o.URL,
		Database:   o.Database,
		User:       o.User,
		MaxResults: o.JSONData.MaxResults,
		Password:   o.Password(),
	}
}

// Clone returns a deep copy. Reducers always work on a clone so the host can
// rely on reference-based change detection.
func (o Options) Clone() Options {
	c := o
	c.JSONData = o.JSONData.Clone()
	c.SecureJSONData = cloneMap(o.SecureJSONData)
	c.SecureJSONFields = cloneMap(o.SecureJSONFields)
	c.extra = cloneMap(o.extra)
	return c
}

func (o Options) WithURL(url string) Options {
	c := o.Clone()
	c.URL = url
	c.set |= hasURL
	return c
}

func (o Options) WithDatabase(database string) Options {
	c := o.Clone()
	c.Database = database
	c.set |= hasDatabase
	return c
}

func (o Options) WithUser(user string) Options {
	c := o.Clone()
	c.User = user
	c.set |= hasUser
	return c
}

func (o Options) WithMaxResults(limit Limit) Options {
	c := o.Clone()
	c.JSONData.MaxResults = &limit
	c.set |= hasJSONData
	return c
}

// WithPassword places the new password in the secure side channel only.
func (o Options) WithPassword(password string) Options {
	c := o.Clone()
	if c.SecureJSONData == nil {
		c.SecureJSONData = make(map[string]string, 1)
	}
	c.SecureJSONData[passwordKey] = password
	return c
}

// WithPasswordReset marks the stored password as not configured and blanks
// the working value, whatever the previous state was.
func (o Options) WithPasswordReset() Options {
	c := o.Clone()
	if c.SecureJSONFields == nil {
		c.SecureJSONFields = make(map[string]bool, 1)
	}
	if c.SecureJSONData == nil {
		c.SecureJSONData = make(map[string]string, 1)
	}
	c.SecureJSONFields[passwordKey] = false
	c.SecureJSONData[passwordKey] = ""
	return c
}

func (d JSONData) Clone() JSONData {
	c := d
	if d.MaxResults != nil {
		v := *d.MaxResults
		c.MaxResults = &v
	}
	c.extra = cloneMap(d.extra)
	return c
}

func (d JSONData) isZero() bool {
	return d.MaxResults == nil && len(d.extra) == 0
}

// Text returns the query text, or "" when it is not set.
func (q Query) Text() string {
	if q.QueryText == nil {
		return ""
	}
	return *q.QueryText
}

func (q Query) Clone() Query {
	c := q
	if q.Datasource != nil {
		ref := *q.Datasource
		c.Datasource = &ref
	}
	if q.QueryText != nil {
		text := *q.QueryText
		c.QueryText = &text
	}
	c.extra = cloneMap(q.extra)
	return c
}

func (q Query) WithQueryText(text string) Query {
	c := q.Clone()
	c.QueryText = &text
	return c
}

func (q Query) WithDatasource(ref DataSourceRef) Query {
	c := q.Clone()
	c.Datasource = &ref
	return c
}

// WithDefaults fills in fields the host has not set. An explicitly empty
// query text is kept.
func (q Query) WithDefaults() Query {
	if q.QueryText != nil {
		return q.Clone()
	}
	return q.WithQueryText(DefaultQueryText)
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
