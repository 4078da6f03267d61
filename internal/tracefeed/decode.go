// Package tracefeed decodes trace payloads into events and keeps a local feed
// of events received over OTLP.
package tracefeed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	collectorlogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tobert/opsview/internal/safehtml"
	"github.com/tobert/opsview/internal/viz"
)

// ErrNotOK is returned when a trace payload carries "ok": false.
var ErrNotOK = errors.New("trace endpoint reported failure")

// localLayout is the space-separated timestamp form some endpoints emit.
const localLayout = "2006-01-02 15:04:05"

type payload struct {
	OK     *bool      `json:"ok"`
	Error  any        `json:"error"`
	Events []rawEvent `json:"events"`
}

type rawEvent struct {
	Time    any `json:"time"`
	Stage   any `json:"stage"`
	Message any `json:"message"`
	Source  any `json:"source"`
}

// Decode parses a trace body. Two shapes are accepted: the
// {"ok":..., "events":[...]} envelope and an OTLP/JSON
// ExportLogsServiceRequest. Event order is preserved.
func Decode(body []byte) ([]viz.TraceEvent, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse trace payload: %w", err)
	}

	if _, ok := probe["resourceLogs"]; ok {
		var req collectorlogs.ExportLogsServiceRequest
		if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("failed to parse OTLP logs: %w", err)
		}
		return FromResourceLogs(req.ResourceLogs), nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse trace payload: %w", err)
	}
	if p.OK != nil && !*p.OK {
		if msg := safehtml.Stringify(p.Error); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrNotOK, msg)
		}
		return nil, ErrNotOK
	}

	events := make([]viz.TraceEvent, 0, len(p.Events))
	for _, re := range p.Events {
		events = append(events, viz.TraceEvent{
			Time:    ParseTime(re.Time),
			Stage:   safehtml.Stringify(re.Stage),
			Message: safehtml.Stringify(re.Message),
			Source:  safehtml.Stringify(re.Source),
		})
	}
	return events, nil
}

// ParseTime accepts RFC 3339 strings, "YYYY-MM-DD hh:mm:ss" in local time,
// and unix timestamps in seconds or milliseconds (numbers or numeric
// strings). Anything else yields the zero time.
func ParseTime(v any) time.Time {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts
		}
		if ts, err := time.ParseInLocation(localLayout, s, time.Local); err == nil {
			return ts
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromUnix(f)
		}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return fromUnix(f)
		}
	case float64:
		return fromUnix(t)
	}
	return time.Time{}
}

// fromUnix treats values above 1e12 as milliseconds.
func fromUnix(f float64) time.Time {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f))
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// FromResourceLogs maps OTLP log records to events. The stage comes from a
// "stage" or "event.name" attribute, falling back to severity text; the
// source is the resource's service.name.
func FromResourceLogs(rls []*logspb.ResourceLogs) []viz.TraceEvent {
	var events []viz.TraceEvent
	for _, rl := range rls {
		source := ""
		if rl.GetResource() != nil {
			source = attrString(rl.GetResource().GetAttributes(), "service.name")
		}
		for _, sl := range rl.GetScopeLogs() {
			for _, lr := range sl.GetLogRecords() {
				events = append(events, fromLogRecord(lr, source))
			}
		}
	}
	return events
}

func fromLogRecord(lr *logspb.LogRecord, source string) viz.TraceEvent {
	ts := lr.GetTimeUnixNano()
	if ts == 0 {
		ts = lr.GetObservedTimeUnixNano()
	}

	var at time.Time
	if ts > 0 {
		at = time.Unix(0, int64(ts))
	}

	stage := attrString(lr.GetAttributes(), "stage")
	if stage == "" {
		stage = attrString(lr.GetAttributes(), "event.name")
	}
	if stage == "" {
		stage = lr.GetSeverityText()
	}
	if stage == "" && lr.GetSeverityNumber() != logspb.SeverityNumber_SEVERITY_NUMBER_UNSPECIFIED {
		stage = strings.TrimPrefix(lr.GetSeverityNumber().String(), "SEVERITY_NUMBER_")
	}

	if s := attrString(lr.GetAttributes(), "source"); s != "" {
		source = s
	}

	return viz.TraceEvent{
		Time:    at,
		Stage:   stage,
		Message: anyValueString(lr.GetBody()),
		Source:  source,
	}
}

func attrString(attrs []*commonpb.KeyValue, key string) string {
	for _, kv := range attrs {
		if kv.GetKey() == key {
			return anyValueString(kv.GetValue())
		}
	}
	return ""
}

func anyValueString(v *commonpb.AnyValue) string {
	if v == nil {
		return ""
	}
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_IntValue:
		return strconv.FormatInt(val.IntValue, 10)
	case *commonpb.AnyValue_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'f', -1, 64)
	case *commonpb.AnyValue_BoolValue:
		return strconv.FormatBool(val.BoolValue)
	case *commonpb.AnyValue_BytesValue:
		return string(val.BytesValue)
	default:
		b, err := protojson.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
