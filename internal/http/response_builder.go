package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"pagamentos/internal/core"
	"pagamentos/internal/log"
)

// ResponseBuilder provides a fluent API for JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	raw        []byte
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the body, encoded on Write.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	b.raw = nil
	return b
}

// Body sends content as-is. Set Content-Type with Header.
func (b *ResponseBuilder) Body(content []byte) *ResponseBuilder {
	b.raw = content
	b.payload = nil
	return b
}

// Attachment marks the body as a download named filename.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		if len(b.raw) > 0 {
			_, _ = w.Write(b.raw)
		}
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Line  int    `json:"line,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// FromError maps command errors to responses: validation 400, parse 422,
// unknown record 404, anything else 500.
func FromError(err error) *ResponseBuilder {
	var (
		ve *core.ValidationError
		pe *core.ParseError
	)
	switch {
	case errors.Is(err, core.ErrRecordNotFound):
		return NotFoundError(err.Error())
	case errors.As(err, &ve):
		return NewResponse().Status(http.StatusBadRequest).
			JSON(errorBody{Error: ve.Err.Error(), Field: ve.Field})
	case errors.As(err, &pe):
		return NewResponse().Status(http.StatusUnprocessableEntity).
			JSON(errorBody{Error: pe.Err.Error(), Line: pe.Line})
	case errors.Is(err, ErrBodyTooLarge):
		return ErrorResponse(http.StatusRequestEntityTooLarge, err.Error())
	default:
		return InternalServerError("internal error")
	}
}

// writeError logs unexpected failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := FromError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		ctx := r.Context()
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"))
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, log.ComponentHTTP, r.Pattern, fields)
	}
	resp.Write(w)
}
