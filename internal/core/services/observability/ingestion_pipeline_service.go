package observability

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/sideseat/sideseat-core/internal/core/domain/observability"
	"github.com/sideseat/sideseat-core/internal/infrastructure/streams"
	"github.com/sideseat/sideseat-core/pkg/ulid"
)

// errEmptyRequest is returned when a decoded OTLP request carries no
// resource spans/metrics at all.
var errEmptyRequest = errors.New("OTLP request must contain at least one resource entry")

// errMissingProjectID is returned when neither the request URL nor any
// OTLP resource attribute carries a project id.
var errMissingProjectID = errors.New("project id is required: supply it in the ingestion URL or as a project_id resource attribute")

// resourceProjectIDKey is the OTLP resource attribute carrying the tenant
// project id, for SDKs that set it directly rather than relying on the
// ingestion URL.
const resourceProjectIDKey = "project_id"

// IngestionPipelineService is the concrete observability.IngestionPipeline.
// It owns everything past "here is a request body": wire decoding, tenant
// resolution, OTLP-to-internal conversion, span-level deduplication, and
// publishing onto the per-project telemetry stream for the consumer workers
// to drain.
type IngestionPipelineService struct {
	streamProducer       *streams.TelemetryStreamProducer
	deduplicationService observability.TelemetryDeduplicationService
	traceConverter       *OTLPConverterService
	metricsConverter     *OTLPMetricsConverterService
	logger               *logrus.Logger
}

// NewIngestionPipelineService creates a new ingestion pipeline.
func NewIngestionPipelineService(
	streamProducer *streams.TelemetryStreamProducer,
	deduplicationService observability.TelemetryDeduplicationService,
	traceConverter *OTLPConverterService,
	metricsConverter *OTLPMetricsConverterService,
	logger *logrus.Logger,
) *IngestionPipelineService {
	return &IngestionPipelineService{
		streamProducer:       streamProducer,
		deduplicationService: deduplicationService,
		traceConverter:       traceConverter,
		metricsConverter:     metricsConverter,
		logger:               logger,
	}
}

// IngestTraces implements observability.IngestionPipeline.
func (s *IngestionPipelineService) IngestTraces(ctx context.Context, projectID string, contentType string, body []byte) (*observability.IngestResult, error) {
	body, err := maybeGunzip(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress request body: %w", err)
	}

	otlpReq, err := decodeOTLPTraceRequest(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode OTLP trace request: %w", err)
	}
	if len(otlpReq.ResourceSpans) == 0 {
		return nil, errEmptyRequest
	}

	resolvedProjectID, err := s.resolveProjectID(projectID, &otlpReq)
	if err != nil {
		return nil, err
	}

	brokleEvents, err := s.traceConverter.ConvertOTLPToBrokleEvents(ctx, &otlpReq, resolvedProjectID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to convert OTLP traces: %w", err)
	}

	dedupIDs := make([]string, 0, len(brokleEvents))
	dedupIDToFirstIndex := make(map[string]int)
	for i, event := range brokleEvents {
		if event.EventType != observability.TelemetryEventTypeSpan {
			continue
		}
		if event.SpanID == "" {
			s.logger.WithFields(logrus.Fields{
				"event_id": event.EventID.String(),
				"trace_id": event.TraceID,
			}).Error("Span missing span_id, skipping deduplication")
			continue
		}
		dedupID := fmt.Sprintf("%s:%s", event.TraceID, event.SpanID)
		dedupIDs = append(dedupIDs, dedupID)
		if _, exists := dedupIDToFirstIndex[dedupID]; !exists {
			dedupIDToFirstIndex[dedupID] = i
		}
	}

	batchID := ulid.New()
	var claimedIDs, duplicateIDs []string
	if len(dedupIDs) > 0 {
		claimedIDs, duplicateIDs, err = s.deduplicationService.ClaimEvents(ctx, resolvedProjectID, batchID, dedupIDs, 24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("failed to claim spans for deduplication: %w", err)
		}
	}

	hasTraces := false
	for _, event := range brokleEvents {
		if event.EventType == observability.TelemetryEventTypeTrace {
			hasTraces = true
			break
		}
	}

	if len(claimedIDs) == 0 && !hasTraces {
		return &observability.IngestResult{
			BatchID:         batchID,
			DuplicateEvents: len(duplicateIDs),
			AllDuplicates:   true,
		}, nil
	}

	claimedSet := make(map[string]bool, len(claimedIDs))
	for _, id := range claimedIDs {
		claimedSet[id] = true
	}

	claimedEventData := make([]streams.TelemetryEventData, 0, len(brokleEvents))
	for i, event := range brokleEvents {
		if event.EventType == observability.TelemetryEventTypeTrace {
			claimedEventData = append(claimedEventData, toStreamEventData(event))
			continue
		}
		if event.EventType != observability.TelemetryEventTypeSpan {
			continue
		}
		dedupID := fmt.Sprintf("%s:%s", event.TraceID, event.SpanID)
		isFirstOccurrence := dedupIDToFirstIndex[dedupID] == i
		if isFirstOccurrence && claimedSet[dedupID] {
			claimedEventData = append(claimedEventData, toStreamEventData(event))
		}
	}

	streamMsg := &streams.TelemetryStreamMessage{
		BatchID:   batchID,
		ProjectID: resolvedProjectID,
		Events:    claimedEventData,
		Metadata: map[string]interface{}{
			"source":          "otlp",
			"content_type":    contentType,
			"resource_spans":  len(otlpReq.ResourceSpans),
			"total_spans":     countTraceSpans(&otlpReq),
			"claimed_spans":   claimedIDs,
			"duplicate_spans": duplicateIDs,
		},
		Timestamp: time.Now(),
	}

	streamID, err := s.streamProducer.PublishBatch(ctx, streamMsg)
	if err != nil {
		if rollbackErr := s.deduplicationService.ReleaseEvents(ctx, claimedIDs); rollbackErr != nil {
			s.logger.WithFields(logrus.Fields{
				"rollback_error": rollbackErr.Error(),
				"original_error": err.Error(),
				"batch_id":       batchID.String(),
			}).Error("CRITICAL: failed to rollback deduplication claims after publish failure")
		}
		return nil, fmt.Errorf("failed to publish trace batch: %w", err)
	}

	return &observability.IngestResult{
		BatchID:         batchID,
		StreamID:        streamID,
		ProcessedEvents: len(claimedIDs),
		DuplicateEvents: len(duplicateIDs),
	}, nil
}

// IngestMetrics implements observability.IngestionPipeline. Metrics carry no
// span-level dedup identity - each OTLP data point becomes its own event and
// duplicate exports simply produce duplicate rows that later aggregation
// collapses (see the ReplacingMergeTree/FINAL dedup path on otel_traces; the
// metrics tables follow the same pattern at the table level).
func (s *IngestionPipelineService) IngestMetrics(ctx context.Context, projectID string, contentType string, body []byte) (*observability.IngestResult, error) {
	body, err := maybeGunzip(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress request body: %w", err)
	}

	resolvedProjectID, err := ulid.Parse(projectID)
	if err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", projectID, err)
	}

	metricsData, err := decodeOTLPMetricsRequest(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode OTLP metrics request: %w", err)
	}
	if len(metricsData.GetResourceMetrics()) == 0 {
		return nil, errEmptyRequest
	}

	brokleEvents, err := s.metricsConverter.ConvertMetricsRequest(ctx, metricsData, resolvedProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to convert OTLP metrics: %w", err)
	}

	eventData := make([]streams.TelemetryEventData, 0, len(brokleEvents))
	for _, event := range brokleEvents {
		eventData = append(eventData, toStreamEventData(event))
	}

	batchID := ulid.New()
	streamMsg := &streams.TelemetryStreamMessage{
		BatchID:   batchID,
		ProjectID: resolvedProjectID,
		Events:    eventData,
		Timestamp: batchID.Time(),
	}

	streamID, err := s.streamProducer.PublishBatch(ctx, streamMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to publish metrics batch: %w", err)
	}

	return &observability.IngestResult{
		BatchID:         batchID,
		StreamID:        streamID,
		ProcessedEvents: len(brokleEvents),
	}, nil
}

// resolveProjectID implements the URL-path-vs-resource-attribute precedence
// decision: the caller-supplied id (URL path, or the authenticated key's
// project for routes with no URL tenant segment) wins when both are present;
// a disagreement is logged, not rejected. When neither is present the
// request is rejected.
func (s *IngestionPipelineService) resolveProjectID(callerProjectID string, otlpReq *observability.OTLPRequest) (ulid.ULID, error) {
	resourceProjectID := extractResourceProjectID(otlpReq)

	switch {
	case callerProjectID != "" && resourceProjectID != "" && callerProjectID != resourceProjectID:
		s.logger.WithFields(logrus.Fields{
			"url_project_id":      callerProjectID,
			"resource_project_id": resourceProjectID,
		}).Warn("OTLP resource project_id does not match request project id, trusting the request")
		return ulid.Parse(callerProjectID)
	case callerProjectID != "":
		return ulid.Parse(callerProjectID)
	case resourceProjectID != "":
		return ulid.Parse(resourceProjectID)
	default:
		return ulid.ULID{}, errMissingProjectID
	}
}

func extractResourceProjectID(otlpReq *observability.OTLPRequest) string {
	for _, rs := range otlpReq.ResourceSpans {
		if rs.Resource == nil {
			continue
		}
		for _, attr := range rs.Resource.Attributes {
			if attr.Key == resourceProjectIDKey {
				if v, ok := attr.Value.(string); ok {
					return v
				}
			}
		}
	}
	return ""
}

// toStreamEventData adapts a converted telemetry event onto the stream wire
// format. trace_id/span_id already live inside Payload (see createSpanEvent
// in otlp_converter.go); TelemetryEventData carries no separate fields for
// them.
func toStreamEventData(event *observability.TelemetryEventRequest) streams.TelemetryEventData {
	return streams.TelemetryEventData{
		EventID:      event.EventID,
		EventType:    string(event.EventType),
		EventPayload: event.Payload,
	}
}

func maybeGunzip(body []byte, contentEncoding string) ([]byte, error) {
	if !strings.Contains(contentEncoding, "gzip") {
		return body, nil
	}
	reader, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func decodeOTLPTraceRequest(body []byte, contentType string) (observability.OTLPRequest, error) {
	var protoReq coltracepb.ExportTraceServiceRequest
	var err error
	if strings.Contains(contentType, "application/x-protobuf") {
		err = proto.Unmarshal(body, &protoReq)
	} else {
		err = protojson.Unmarshal(body, &protoReq)
	}
	if err != nil {
		return observability.OTLPRequest{}, err
	}
	return convertTraceProtoToInternal(&protoReq)
}

// convertTraceProtoToInternal converts an official OTLP protobuf trace
// export request into this codebase's internal wire representation.
func convertTraceProtoToInternal(protoReq *coltracepb.ExportTraceServiceRequest) (observability.OTLPRequest, error) {
	var internalReq observability.OTLPRequest

	for _, protoRS := range protoReq.ResourceSpans {
		internalRS := observability.ResourceSpan{}

		if protoRS.Resource != nil {
			internalResource := &observability.Resource{}
			for _, attr := range protoRS.Resource.Attributes {
				internalResource.Attributes = append(internalResource.Attributes, observability.KeyValue{
					Key:   attr.Key,
					Value: convertProtoAnyValue(attr.Value),
				})
			}
			internalRS.Resource = internalResource
		}

		for _, protoSS := range protoRS.ScopeSpans {
			internalSS := observability.ScopeSpan{}

			if protoSS.Scope != nil {
				internalScope := &observability.Scope{
					Name:    protoSS.Scope.Name,
					Version: protoSS.Scope.Version,
				}
				for _, attr := range protoSS.Scope.Attributes {
					internalScope.Attributes = append(internalScope.Attributes, observability.KeyValue{
						Key:   attr.Key,
						Value: convertProtoAnyValue(attr.Value),
					})
				}
				internalSS.Scope = internalScope
			}

			for _, protoSpan := range protoSS.Spans {
				traceIDHex := hex.EncodeToString(protoSpan.TraceId)
				spanIDHex := hex.EncodeToString(protoSpan.SpanId)
				var parentSpanIDHex interface{}
				if len(protoSpan.ParentSpanId) > 0 {
					parentSpanIDHex = hex.EncodeToString(protoSpan.ParentSpanId)
				}

				internalSpan := observability.OTLPSpan{
					TraceID:           traceIDHex,
					SpanID:            spanIDHex,
					ParentSpanID:      parentSpanIDHex,
					Name:              protoSpan.Name,
					Kind:              int(protoSpan.Kind),
					StartTimeUnixNano: int64(protoSpan.StartTimeUnixNano),
					EndTimeUnixNano:   int64(protoSpan.EndTimeUnixNano),
				}

				for _, attr := range protoSpan.Attributes {
					internalSpan.Attributes = append(internalSpan.Attributes, observability.KeyValue{
						Key:   attr.Key,
						Value: convertProtoAnyValue(attr.Value),
					})
				}

				if protoSpan.Status != nil {
					internalSpan.Status = &observability.Status{
						Code:    int(protoSpan.Status.Code),
						Message: protoSpan.Status.Message,
					}
				}

				for _, protoEvent := range protoSpan.Events {
					internalEvent := observability.Event{
						TimeUnixNano: int64(protoEvent.TimeUnixNano),
						Name:         protoEvent.Name,
					}
					for _, attr := range protoEvent.Attributes {
						internalEvent.Attributes = append(internalEvent.Attributes, observability.KeyValue{
							Key:   attr.Key,
							Value: convertProtoAnyValue(attr.Value),
						})
					}
					internalSpan.Events = append(internalSpan.Events, internalEvent)
				}

				internalSS.Spans = append(internalSS.Spans, internalSpan)
			}

			internalRS.ScopeSpans = append(internalRS.ScopeSpans, internalSS)
		}

		internalReq.ResourceSpans = append(internalReq.ResourceSpans, internalRS)
	}

	return internalReq, nil
}

func convertProtoAnyValue(value *commonpb.AnyValue) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return v.StringValue
	case *commonpb.AnyValue_BoolValue:
		return v.BoolValue
	case *commonpb.AnyValue_IntValue:
		return v.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return v.DoubleValue
	case *commonpb.AnyValue_ArrayValue:
		if v.ArrayValue == nil {
			return nil
		}
		arr := make([]interface{}, len(v.ArrayValue.Values))
		for i, item := range v.ArrayValue.Values {
			arr[i] = convertProtoAnyValue(item)
		}
		return arr
	case *commonpb.AnyValue_KvlistValue:
		if v.KvlistValue == nil {
			return nil
		}
		m := make(map[string]interface{})
		for _, kv := range v.KvlistValue.Values {
			m[kv.Key] = convertProtoAnyValue(kv.Value)
		}
		return m
	case *commonpb.AnyValue_BytesValue:
		return v.BytesValue
	default:
		return nil
	}
}

func decodeOTLPMetricsRequest(body []byte, contentType string) (*metricspb.MetricsData, error) {
	var protoReq colmetricspb.ExportMetricsServiceRequest
	var err error
	if strings.Contains(contentType, "application/x-protobuf") {
		err = proto.Unmarshal(body, &protoReq)
	} else {
		err = protojson.Unmarshal(body, &protoReq)
	}
	if err != nil {
		return nil, err
	}
	return &metricspb.MetricsData{ResourceMetrics: protoReq.GetResourceMetrics()}, nil
}

func countTraceSpans(req *observability.OTLPRequest) int {
	count := 0
	for _, rs := range req.ResourceSpans {
		for _, ss := range rs.ScopeSpans {
			count += len(ss.Spans)
		}
	}
	return count
}
