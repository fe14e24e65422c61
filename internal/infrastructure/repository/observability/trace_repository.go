package observability

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	"github.com/sideseat/sideseat-core/pkg/pagination"
)

// traceSummarySelectFields aggregates span rows into a trace-level summary.
// Traces are virtual in OTLP: a trace is the root span (parent_span_id IS NULL)
// plus aggregates computed over every span sharing its trace_id.
const traceSummarySelectFields = `
	trace_id,
	any(project_id) AS project_id,
	anyIf(span_id, parent_span_id IS NULL) AS root_span_id,
	anyIf(span_name, parent_span_id IS NULL) AS name,
	min(start_time) AS start_time,
	max(end_time) AS end_time,
	sum(duration_nano) AS duration,
	sum(total_cost) AS total_cost,
	sum(usage_details['input_tokens']) AS input_tokens,
	sum(usage_details['output_tokens']) AS output_tokens,
	sum(usage_details['total_tokens']) AS total_tokens,
	count() AS span_count,
	countIf(has_error) AS error_span_count,
	max(has_error) AS has_error,
	anyIf(status_code, parent_span_id IS NULL) AS status_code,
	any(service_name) AS service_name,
	any(model_name) AS model_name,
	any(provider_name) AS provider_name,
	any(span_attributes['user.id']) AS user_id,
	any(span_attributes['session.id']) AS session_id
`

// traceRepository implements observability.TraceRepository against ClickHouse.
// It shares the otel_traces table with spanRepository and composes trace-level
// views on top of span-level rows.
type traceRepository struct {
	db clickhouse.Conn
}

// NewTraceRepository creates a new trace repository instance.
func NewTraceRepository(db clickhouse.Conn) observability.TraceRepository {
	return &traceRepository{db: db}
}

// ---- Span operations (delegate to the shared otel_traces table) ----

func (r *traceRepository) InsertSpan(ctx context.Context, span *observability.Span) error {
	return (&spanRepository{db: r.db}).Create(ctx, span)
}

func (r *traceRepository) InsertSpanBatch(ctx context.Context, spans []*observability.Span) error {
	return (&spanRepository{db: r.db}).CreateBatch(ctx, spans)
}

func (r *traceRepository) DeleteSpan(ctx context.Context, spanID string) error {
	return (&spanRepository{db: r.db}).Delete(ctx, spanID)
}

func (r *traceRepository) GetSpan(ctx context.Context, spanID string) (*observability.Span, error) {
	return (&spanRepository{db: r.db}).GetByID(ctx, spanID)
}

func (r *traceRepository) GetSpansByTraceID(ctx context.Context, traceID string) ([]*observability.Span, error) {
	return (&spanRepository{db: r.db}).GetByTraceID(ctx, traceID)
}

func (r *traceRepository) GetSpanChildren(ctx context.Context, parentSpanID string) ([]*observability.Span, error) {
	return (&spanRepository{db: r.db}).GetChildren(ctx, parentSpanID)
}

func (r *traceRepository) GetSpanTree(ctx context.Context, traceID string) ([]*observability.Span, error) {
	return (&spanRepository{db: r.db}).GetTreeByTraceID(ctx, traceID)
}

func (r *traceRepository) GetSpansByFilter(ctx context.Context, filter *observability.SpanFilter) ([]*observability.Span, error) {
	return (&spanRepository{db: r.db}).GetByFilter(ctx, filter)
}

func (r *traceRepository) CountSpansByFilter(ctx context.Context, filter *observability.SpanFilter) (int64, error) {
	return (&spanRepository{db: r.db}).Count(ctx, filter)
}

// ---- Trace operations ----

func (r *traceRepository) GetRootSpan(ctx context.Context, traceID string) (*observability.Span, error) {
	return (&spanRepository{db: r.db}).GetRootSpan(ctx, traceID)
}

func (r *traceRepository) GetTraceSummary(ctx context.Context, traceID string) (*observability.TraceSummary, error) {
	query := `
		SELECT ` + traceSummarySelectFields + `
		FROM otel_traces FINAL
		WHERE trace_id = ? AND deleted_at IS NULL
		GROUP BY trace_id
	`
	row := r.db.QueryRow(ctx, query, traceID)
	return scanTraceSummaryRow(row)
}

func (r *traceRepository) ListTraces(ctx context.Context, filter *observability.TraceFilter) ([]*observability.TraceSummary, error) {
	query := `
		SELECT ` + traceSummarySelectFields + `
		FROM otel_traces FINAL
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filter != nil {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)

		if filter.UserID != nil {
			query += " AND span_attributes['user.id'] = ?"
			args = append(args, *filter.UserID)
		}
		if filter.SessionID != nil {
			query += " AND span_attributes['session.id'] = ?"
			args = append(args, *filter.SessionID)
		}
		if filter.StartTime != nil {
			query += " AND start_time >= ?"
			args = append(args, *filter.StartTime)
		}
		if filter.EndTime != nil {
			query += " AND start_time <= ?"
			args = append(args, *filter.EndTime)
		}
		if filter.ServiceName != nil {
			query += " AND service_name = ?"
			args = append(args, *filter.ServiceName)
		}
		if filter.ModelName != nil {
			query += " AND model_name = ?"
			args = append(args, *filter.ModelName)
		}
		if filter.ProviderName != nil {
			query += " AND provider_name = ?"
			args = append(args, *filter.ProviderName)
		}
	}

	query += " GROUP BY trace_id"

	if filter != nil {
		having := []string{}
		if filter.MinCost != nil {
			having = append(having, "total_cost >= ?")
			args = append(args, *filter.MinCost)
		}
		if filter.MaxCost != nil {
			having = append(having, "total_cost <= ?")
			args = append(args, *filter.MaxCost)
		}
		if filter.MinTokens != nil {
			having = append(having, "total_tokens >= ?")
			args = append(args, *filter.MinTokens)
		}
		if filter.MaxTokens != nil {
			having = append(having, "total_tokens <= ?")
			args = append(args, *filter.MaxTokens)
		}
		if filter.MinDuration != nil {
			having = append(having, "duration >= ?")
			args = append(args, *filter.MinDuration)
		}
		if filter.MaxDuration != nil {
			having = append(having, "duration <= ?")
			args = append(args, *filter.MaxDuration)
		}
		if filter.HasError != nil {
			having = append(having, "has_error = ?")
			args = append(args, *filter.HasError)
		}
		for i, clause := range having {
			if i == 0 {
				query += " HAVING " + clause
			} else {
				query += " AND " + clause
			}
		}
	}

	allowedSortFields := []string{"start_time", "end_time", "duration", "total_cost", "span_count"}
	sortField := "start_time"
	sortDir := "DESC"
	limit := pagination.DefaultPageSize
	offset := 0

	if filter != nil {
		if filter.Params.SortBy != "" {
			validated, err := pagination.ValidateSortField(filter.Params.SortBy, allowedSortFields)
			if err != nil {
				return nil, fmt.Errorf("invalid sort field: %w", err)
			}
			if validated != "" {
				sortField = validated
			}
		}
		if filter.Params.SortDir == "asc" {
			sortDir = "ASC"
		}
		if filter.Params.Limit > 0 {
			limit = filter.Params.Limit
		}
		offset = filter.Params.GetOffset()
	}

	query += fmt.Sprintf(" ORDER BY %s %s", sortField, sortDir)
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	return scanTraceSummaryRows(rows)
}

func (r *traceRepository) CountTraces(ctx context.Context, filter *observability.TraceFilter) (int64, error) {
	query := `
		SELECT count(DISTINCT trace_id)
		FROM otel_traces FINAL
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filter != nil {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)

		if filter.StartTime != nil {
			query += " AND start_time >= ?"
			args = append(args, *filter.StartTime)
		}
		if filter.EndTime != nil {
			query += " AND start_time <= ?"
			args = append(args, *filter.EndTime)
		}
	}

	var count uint64
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return int64(count), err
}

func (r *traceRepository) CountSpansInTrace(ctx context.Context, traceID string) (int64, error) {
	var count uint64
	err := r.db.QueryRow(ctx, "SELECT count() FROM otel_traces FINAL WHERE trace_id = ? AND deleted_at IS NULL", traceID).Scan(&count)
	return int64(count), err
}

func (r *traceRepository) DeleteTrace(ctx context.Context, traceID string) error {
	return r.db.Exec(ctx, "ALTER TABLE otel_traces DELETE WHERE trace_id = ?", traceID)
}

func (r *traceRepository) GetFilterOptions(ctx context.Context, projectID string) (*observability.TraceFilterOptions, error) {
	options := &observability.TraceFilterOptions{}

	if err := r.collectDistinct(ctx, projectID, "model_name", &options.Models); err != nil {
		return nil, err
	}
	if err := r.collectDistinct(ctx, projectID, "provider_name", &options.Providers); err != nil {
		return nil, err
	}
	if err := r.collectDistinct(ctx, projectID, "service_name", &options.Services); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		SELECT min(total_cost), max(total_cost), min(usage_details['total_tokens']), max(usage_details['total_tokens']),
		       min(duration_nano), max(duration_nano)
		FROM otel_traces FINAL WHERE project_id = ? AND deleted_at IS NULL
	`, projectID)

	var costMin, costMax float64
	var tokMin, tokMax, durMin, durMax uint64
	if err := row.Scan(&costMin, &costMax, &tokMin, &tokMax, &durMin, &durMax); err != nil {
		return nil, fmt.Errorf("scan filter ranges: %w", err)
	}
	options.CostRange = &observability.Range{Min: costMin, Max: costMax}
	options.TokenRange = &observability.Range{Min: float64(tokMin), Max: float64(tokMax)}
	options.DurationRange = &observability.Range{Min: float64(durMin), Max: float64(durMax)}

	return options, nil
}

func (r *traceRepository) collectDistinct(ctx context.Context, projectID, column string, dest *[]string) error {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM otel_traces FINAL WHERE project_id = ? AND %s != '' AND deleted_at IS NULL LIMIT 100", column, column)
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return fmt.Errorf("query distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("scan distinct %s: %w", column, err)
		}
		values = append(values, v)
	}
	*dest = values
	return rows.Err()
}

// ---- Analytics ----

func (r *traceRepository) GetTracesBySessionID(ctx context.Context, sessionID string) ([]*observability.TraceSummary, error) {
	query := `
		SELECT ` + traceSummarySelectFields + `
		FROM otel_traces FINAL
		WHERE span_attributes['session.id'] = ? AND deleted_at IS NULL
		GROUP BY trace_id
		ORDER BY start_time DESC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query traces by session: %w", err)
	}
	defer rows.Close()
	return scanTraceSummaryRows(rows)
}

func (r *traceRepository) GetTracesByUserID(ctx context.Context, userID string, filter *observability.TraceFilter) ([]*observability.TraceSummary, error) {
	query := `
		SELECT ` + traceSummarySelectFields + `
		FROM otel_traces FINAL
		WHERE span_attributes['user.id'] = ? AND deleted_at IS NULL
	`
	args := []interface{}{userID}

	if filter != nil && filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}

	query += " GROUP BY trace_id ORDER BY start_time DESC"

	limit := pagination.DefaultPageSize
	offset := 0
	if filter != nil {
		if filter.Params.Limit > 0 {
			limit = filter.Params.Limit
		}
		offset = filter.Params.GetOffset()
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces by user: %w", err)
	}
	defer rows.Close()
	return scanTraceSummaryRows(rows)
}

func (r *traceRepository) CalculateTotalCost(ctx context.Context, traceID string) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, "SELECT sum(total_cost) FROM otel_traces FINAL WHERE trace_id = ? AND deleted_at IS NULL", traceID).Scan(&total)
	return total, err
}

func (r *traceRepository) CalculateTotalTokens(ctx context.Context, traceID string) (uint64, error) {
	var total uint64
	err := r.db.QueryRow(ctx, "SELECT sum(usage_details['total_tokens']) FROM otel_traces FINAL WHERE trace_id = ? AND deleted_at IS NULL", traceID).Scan(&total)
	return total, err
}

func (r *traceRepository) QuerySpansByExpression(ctx context.Context, query string, args []interface{}) ([]*observability.Span, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query spans by expression: %w", err)
	}
	defer rows.Close()
	return (&spanRepository{db: r.db}).scanSpans(rows)
}

func (r *traceRepository) CountSpansByExpression(ctx context.Context, query string, args []interface{}) (int64, error) {
	var count uint64
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return int64(count), err
}

// scanTraceSummaryRow scans a single aggregated trace row.
func scanTraceSummaryRow(row driver.Row) (*observability.TraceSummary, error) {
	var s observability.TraceSummary
	err := row.Scan(
		&s.TraceID, &s.ProjectID, &s.RootSpanID, &s.Name,
		&s.StartTime, &s.EndTime, &s.Duration, &s.TotalCost,
		&s.InputTokens, &s.OutputTokens, &s.TotalTokens,
		&s.SpanCount, &s.ErrorSpanCount, &s.HasError, &s.StatusCode,
		&s.ServiceName, &s.ModelName, &s.ProviderName, &s.UserID, &s.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("scan trace summary: %w", err)
	}
	return &s, nil
}

// scanTraceSummaryRows scans multiple aggregated trace rows.
func scanTraceSummaryRows(rows driver.Rows) ([]*observability.TraceSummary, error) {
	summaries := make([]*observability.TraceSummary, 0)
	for rows.Next() {
		var s observability.TraceSummary
		err := rows.Scan(
			&s.TraceID, &s.ProjectID, &s.RootSpanID, &s.Name,
			&s.StartTime, &s.EndTime, &s.Duration, &s.TotalCost,
			&s.InputTokens, &s.OutputTokens, &s.TotalTokens,
			&s.SpanCount, &s.ErrorSpanCount, &s.HasError, &s.StatusCode,
			&s.ServiceName, &s.ModelName, &s.ProviderName, &s.UserID, &s.SessionID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trace summary: %w", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}
