package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"time"
)

const maxLoggedBody = 1000

// ESTransport 记录每次 Elasticsearch 请求的耗时与请求/响应体
type ESTransport struct {
	Transport     http.RoundTripper
	SlowThreshold time.Duration
}

func (t *ESTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqBody := drainBody(&req.Body)

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Duration("latency", elapsed),
		log.String("req_body", truncate(reqBody)),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "ES_QUERY_ERROR", append(fields, log.Any("err", err))...)
		return nil, err
	}

	resBody := drainBody(&resp.Body)
	fields = append(fields, log.Int("status", resp.StatusCode), log.String("res_body", truncate(resBody)))

	slow := t.SlowThreshold
	if slow == 0 {
		slow = 500 * time.Millisecond
	}
	if elapsed > slow {
		log.WarnContext(req.Context(), "ES_QUERY_SLOW", fields...)
	} else {
		log.InfoContext(req.Context(), "ES_QUERY", fields...)
	}

	return resp, nil
}

// drainBody 读出 body 并放回一个等价副本
func drainBody(body *io.ReadCloser) string {
	if *body == nil {
		return ""
	}
	b, _ := io.ReadAll(*body)
	*body = io.NopCloser(bytes.NewBuffer(b))
	return string(b)
}

func truncate(s string) string {
	if len(s) > maxLoggedBody {
		return s[:maxLoggedBody] + "...[truncated]"
	}
	return s
}
