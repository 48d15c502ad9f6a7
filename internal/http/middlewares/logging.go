package middlewares

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kateeridumb/Library/internal/observability/logger"
)

// recorder guarda status y bytes; el primer WriteHeader gana.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recorder) WriteHeader(code int) {
	if rw.status != 0 {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func accessLevel(status int) zapcore.Level {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel
	case status >= 400:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithLogging deja en el contexto un logger con request_id, método, path e IP
// y emite una línea "http request" al terminar. Va después de WithRequestID.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.ClientIP(clientIP(r)),
			)
			rw := &recorder{ResponseWriter: w}

			next.ServeHTTP(rw, r.WithContext(logger.ToContext(r.Context(), reqLog)))

			if rw.status == 0 {
				rw.status = http.StatusOK
			}
			if ce := reqLog.Check(accessLevel(rw.status), "http request"); ce != nil {
				ce.Write(
					logger.Status(rw.status),
					logger.Bytes(rw.bytes),
					logger.DurationMs(time.Since(start).Milliseconds()),
					zap.Bool("slow", time.Since(start) > time.Second),
				)
			}
		})
	}
}
