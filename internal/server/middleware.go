package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"github.com/slmtnm/s4json/internal/logger"
)

const requestIDHeader = "X-Request-Id"

// middleware wraps h, outermost first: CORS, request id, access log,
// panic recovery.
func middleware(h http.Handler) http.Handler {
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLog)
	h = requestID(h)
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
	)(h)
}

// requestID tags the request with an id and stores a logger carrying it in
// the request context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		l := logger.Get().With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithLogger(r.Context(), &l)))
	})
}

func accessLog(_ io.Writer, p handlers.LogFormatterParams) {
	logger.Ctx(p.Request.Context()).Info().
		Str("method", p.Request.Method).
		Str("path", p.URL.Path).
		Int("status", p.StatusCode).
		Int("size", p.Size).
		Dur("took", time.Since(p.TimeStamp)).
		Msg("request")
}

// recoveryLogger adapts the global logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Error().Msg(fmt.Sprint(v...))
}
