package server

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	engine "github.com/hanpama/gqlengine/internal/engine"
	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
	executor "github.com/hanpama/gqlengine/internal/executor"
	reqid "github.com/hanpama/gqlengine/internal/reqid"
)

// Request bodies keep numbers as json.Number so integer variables stay exact.
var json = jsoniter.Config{
	EscapeHTML:             true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses requests, runs the engine, and formats responses per GraphQL spec.
type Handler struct {
	engine *engine.Engine
	opt    Options
	next   http.Handler
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers to forward into outgoing gRPC
	// metadata, for resolvers that call gRPC backends.
	// Header names are case-insensitive. Default is none.
	MetadataHeaders []string

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// Gzip compresses responses for clients that accept it.
	Gzip bool

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option   { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                   { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option      { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGzip(enable bool) Option          { return func(o *Options) { o.Gzip = enable } }
func WithLogger(logger *zap.Logger) Option { return func(o *Options) { o.Logger = logger } }
func WithGraphiQL(enable bool) Option      { return func(o *Options) { o.GraphiQL = enable } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a new GraphQL HTTP handler serving requests through eng.
func New(eng *engine.Engine, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	h := &Handler{engine: eng, opt: op}
	h.next = http.HandlerFunc(h.serve)
	if op.Gzip {
		h.next = gzhttp.GzipHandler(h.next)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r)
}

func (h *Handler) serve(rw http.ResponseWriter, r *http.Request) {
	w := &responseWriter{ResponseWriter: rw}
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status := http.StatusOK
	operations := 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		if p := recover(); p != nil {
			h.opt.Logger.Error("panic while serving request",
				zap.String("request_id", rid),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
			if !w.started {
				status = http.StatusInternalServerError
				writeJSON(w, status, errorResponse("internal server error"), h.opt.Pretty)
			}
		}
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Operations: operations, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	// Map configured headers into metadata
	md := metadata.MD{}
	if len(h.opt.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.opt.MetadataHeaders))
		for _, hdr := range h.opt.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	md["graphql-request-id"] = []string{rid}
	ctx = metadata.NewOutgoingContext(ctx, md)

	req, batch, msg := parseRequest(r, h.opt.MaxBodyBytes)
	if msg != "" {
		status = http.StatusBadRequest
		if msg == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(msg), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		results := make([]*executor.Result, len(batch))
		for i := range batch {
			results[i] = h.engine.Do(ctx, batch[i])
		}
		operations = len(batch)
		writeJSON(w, status, results, h.opt.Pretty)
		return
	}

	operations = 1
	writeJSON(w, status, h.engine.Do(ctx, req), h.opt.Pretty)
}

// responseWriter records whether the response has started so that a
// recovered panic does not write a second header and body.
type responseWriter struct {
	http.ResponseWriter
	started bool
}

func (w *responseWriter) WriteHeader(status int) {
	w.started = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// ------------------ Request parsing ------------------

// parseRequest returns either a single request or a batch. A non-empty
// message reports why the request could not be read.
func parseRequest(r *http.Request, maxBody int64) (engine.Request, []engine.Request, string) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return engine.Request{}, nil, "missing 'query'"
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return engine.Request{}, nil, "invalid 'variables' JSON"
			}
		}
		op := r.URL.Query().Get("operationName")
		return engine.Request{Query: q, Variables: vars, OperationName: op}, nil, ""
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return engine.Request{}, nil, "unsupported Content-Type"
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return engine.Request{}, nil, "failed to read body"
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return engine.Request{}, nil, errBodyTooLargeMessage
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var arr []engine.Request
		if err := json.Unmarshal(body, &arr); err != nil {
			return engine.Request{}, nil, "invalid JSON"
		}
		if len(arr) == 0 {
			return engine.Request{}, nil, "empty batch"
		}
		return engine.Request{}, arr, ""
	}
	var req engine.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return engine.Request{}, nil, "invalid JSON"
	}
	if req.Query == "" {
		return engine.Request{}, nil, "missing 'query'"
	}
	return req, nil, ""
}

// ------------------ Response formatting ------------------

func errorResponse(message string) *executor.Result {
	return &executor.Result{Errors: []*executor.GraphQLError{{Message: message}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"errors":[{"message":"failed to encode response"}]}`)
	} else if pretty {
		var buf bytes.Buffer
		if stdjson.Indent(&buf, b, "", "  ") == nil {
			b = buf.Bytes()
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
