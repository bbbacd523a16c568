package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/lawfirm-intake/cmd/mainconfig"
	"github.com/wolfman30/lawfirm-intake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/lawfirm-intake/internal/config"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		panic(err)
	}
	rt, err := bootstrap.BuildRuntime(ctx, cfg, awsCfg, prometheus.NewRegistry(), logger)
	if err != nil {
		panic(err)
	}
	// Metrics are not scraped from Lambda and the limiter is per container.
	handler, _ := bootstrap.BuildHTTPHandler(rt, cfg, nil, logger)

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, handler, evt)
	})
}

// handle replays an HTTP API v2 event through the router.
func handle(ctx context.Context, handler http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := toRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	w := newResponseWriter()
	handler.ServeHTTP(w, req)
	return w.response(), nil
}

func toRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	target := &url.URL{Path: path, RawQuery: evt.RawQueryString}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	for _, c := range evt.Cookies {
		req.Header.Add("Cookie", c)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
		if req.Header.Get("X-Real-Ip") == "" {
			req.Header.Set("X-Real-Ip", ip)
		}
	}
	req.Host = evt.RequestContext.DomainName
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

// responseWriter buffers a handler's response for the Lambda return value.
type responseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) response() events.APIGatewayV2HTTPResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       w.body.String(),
		Headers:    map[string]string{},
	}
	for k, values := range w.header {
		if strings.EqualFold(k, "Set-Cookie") {
			out.Cookies = append(out.Cookies, values...)
			continue
		}
		out.Headers[strings.ToLower(k)] = strings.Join(values, ", ")
	}
	return out
}
