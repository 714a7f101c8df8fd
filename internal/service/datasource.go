package service

import (
	"context"
	"encoding/json"
	"errors"
	"mongods/internal/core"
	"mongods/internal/logger"
	"mongods/internal/metrics"
	"time"

	"github.com/google/uuid"
)

var ErrNoDatasourceUID = errors.New("data source uid is not configured")

// InstanceSettings identifies the data source instance queries are sent to.
type InstanceSettings struct {
	UID  string
	Type string
}

// QueryRequest is one batch of panel targets to run.
type QueryRequest struct {
	RequestID  string
	Targets    []core.Query
	ScopedVars core.Variables
	From       string
	To         string
}

// DataSource prepares queries for execution and forwards them to the host's
// backend interface. Execution, connections and results belong to the backend.
type DataSource struct {
	instance    InstanceSettings
	backend     core.QueryBackend
	templateSrv core.TemplateReplacer
	auditRepo   core.AuditRepository
}

// NewDataSource creates a data source. auditRepo may be nil.
func NewDataSource(instance InstanceSettings, backend core.QueryBackend, templateSrv core.TemplateReplacer, auditRepo core.AuditRepository) *DataSource {
	return &DataSource{
		instance:    instance,
		backend:     backend,
		templateSrv: templateSrv,
		auditRepo:   auditRepo,
	}
}

// WithTemplateSrv returns a copy that substitutes variables with srv.
func (d *DataSource) WithTemplateSrv(srv core.TemplateReplacer) *DataSource {
	c := *d
	c.templateSrv = srv
	return &c
}

// ApplyTemplateVariables returns a copy of query with variables in its text
// replaced. Missing or empty text becomes "".
func (d *DataSource) ApplyTemplateVariables(query core.Query, scoped core.Variables) core.Query {
	queryText := ""
	if text := query.Text(); text != "" {
		queryText = text
		if d.templateSrv != nil {
			queryText = d.templateSrv.Replace(text, scoped)
		}
	}
	return query.WithQueryText(queryText)
}

// Query prepares the visible targets of req and sends them to the backend in
// one batch. The host's results are returned as they are.
func (d *DataSource) Query(ctx context.Context, req QueryRequest) (result *core.QueryDataResponse, err error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ref := core.DataSourceRef{Type: d.instance.Type, UID: d.instance.UID}
	queries := make([]core.Query, 0, len(req.Targets))
	for _, target := range req.Targets {
		if target.Hide {
			continue
		}
		queries = append(queries, d.ApplyTemplateVariables(target, req.ScopedVars).WithDatasource(ref))
	}

	if len(queries) == 0 {
		return &core.QueryDataResponse{Results: map[string]json.RawMessage{}}, nil
	}

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime)
		metrics.ForwardDuration.Observe(duration.Seconds())
		d.record(requestID, queries, result, err, startTime, duration)
	}()

	result, err = d.backend.QueryData(ctx, &core.QueryDataRequest{
		RequestID: requestID,
		Queries:   queries,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TestDatasource runs the host's health check for this data source.
func (d *DataSource) TestDatasource(ctx context.Context) (*core.HealthResult, error) {
	if d.instance.UID == "" {
		return nil, ErrNoDatasourceUID
	}
	return d.backend.CheckHealth(ctx, d.instance.UID)
}

type resultError struct {
	Error string `json:"error"`
}

// record writes one audit entry and one metric sample per forwarded target.
func (d *DataSource) record(requestID string, queries []core.Query, result *core.QueryDataResponse, err error, startTime time.Time, duration time.Duration) {
	for _, q := range queries {
		status := "SUCCESS"
		errMsg := ""
		if err != nil {
			status = "ERROR"
			errMsg = err.Error()
		} else if result != nil {
			var re resultError
			if raw, ok := result.Results[q.RefID]; ok && json.Unmarshal(raw, &re) == nil && re.Error != "" {
				status = "ERROR"
				errMsg = re.Error
			}
		}
		metrics.QueriesForwarded.WithLabelValues(status).Inc()

		if d.auditRepo == nil {
			continue
		}
		auditErr := d.auditRepo.Create(&core.AuditLog{
			Timestamp:     startTime,
			RequestID:     requestID,
			DatasourceUID: d.instance.UID,
			RefID:         q.RefID,
			QueryText:     q.Text(),
			DurationMs:    duration.Milliseconds(),
			Status:        status,
			ErrorMessage:  errMsg,
		})
		if auditErr != nil {
			logger.Error.Printf("audit write failed for request %s ref %s: %v", requestID, q.RefID, auditErr)
		}
	}
}
