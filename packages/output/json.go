package output

import (
	"encoding/json"
	"io"
	"strconv"

	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
	"github.com/abdul-hamid-achik/qakit/packages/load"
	"github.com/abdul-hamid-achik/qakit/packages/rabbitmq"
)

// JSONResponse is the machine-readable form of a response envelope.
// Headers and Cookies are omitted for non-blocking responses.
type JSONResponse struct {
	Method     string              `json:"method"`
	URL        string              `json:"url"`
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Cookies    map[string]string   `json:"cookies,omitempty"`
	Body       json.RawMessage     `json:"body,omitempty"`
	Duration   float64             `json:"duration"`
}

// WriteResponseJSON writes resp as indented JSON. A body that is not JSON
// is embedded as a string.
func WriteResponseJSON(w io.Writer, method, url string, resp *qhttp.Response, durationMs float64) error {
	out := JSONResponse{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       rawBody(resp.Body),
		Duration:   durationMs,
	}
	if resp.Header != nil {
		out.Headers = resp.Header
	}
	if len(resp.Cookies) > 0 {
		out.Cookies = make(map[string]string, len(resp.Cookies))
		for _, c := range resp.Cookies {
			out.Cookies[c.Name] = c.Value
		}
	}
	return encode(w, out)
}

// JSONDelivery is the machine-readable form of a fetched message.
type JSONDelivery struct {
	Queue         string          `json:"queue"`
	Empty         bool            `json:"empty"`
	DeliveryTag   uint64          `json:"deliveryTag,omitempty"`
	MessageCount  uint32          `json:"messageCount,omitempty"`
	Redelivered   bool            `json:"redelivered,omitempty"`
	ContentType   string          `json:"contentType,omitempty"`
	DeliveryMode  string          `json:"deliveryMode,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Body          json.RawMessage `json:"body,omitempty"`
}

func WriteDeliveryJSON(w io.Writer, queue string, d *rabbitmq.Delivery) error {
	out := JSONDelivery{Queue: queue, Empty: d == nil}
	if d != nil {
		out.DeliveryTag = d.Metadata.DeliveryTag
		out.MessageCount = d.Metadata.MessageCount
		out.Redelivered = d.Metadata.Redelivered
		out.ContentType = d.Properties.ContentType
		out.DeliveryMode = d.Properties.DeliveryMode.String()
		out.CorrelationID = d.Properties.CorrelationID
		out.Body = rawBody(d.Body)
	}
	return encode(w, out)
}

// WriteBenchJSON outputs the bench summary as JSON
func WriteBenchJSON(w io.Writer, summary *load.Summary, thresholdResults []load.ThresholdResult) error {
	statuses := make(map[string]int64, len(summary.Statuses))
	for code, n := range summary.Statuses {
		statuses[strconv.Itoa(code)] = n
	}

	output := map[string]any{
		"duration": summary.Duration.String(),
		"requests": map[string]any{
			"total":    summary.Total,
			"success":  summary.SuccessCount,
			"failed":   summary.ErrorCount,
			"timeouts": summary.TimeoutCount,
		},
		"statuses": statuses,
		"rates": map[string]any{
			"rps":       summary.RPS,
			"errorRate": summary.ErrorRate,
		},
		"latency": map[string]any{
			"p50":    summary.P50.Milliseconds(),
			"p95":    summary.P95.Milliseconds(),
			"p99":    summary.P99.Milliseconds(),
			"min":    summary.Min.Milliseconds(),
			"max":    summary.Max.Milliseconds(),
			"mean":   summary.Mean.Milliseconds(),
			"stddev": summary.StdDev.Milliseconds(),
		},
	}

	if len(thresholdResults) > 0 {
		thresholds := make([]map[string]any, len(thresholdResults))
		for i, tr := range thresholdResults {
			thresholds[i] = map[string]any{
				"name":     tr.Name,
				"passed":   tr.Passed,
				"expected": tr.Expected,
				"actual":   tr.Actual,
			}
		}
		output["thresholds"] = thresholds
	}

	return encode(w, output)
}

func rawBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
