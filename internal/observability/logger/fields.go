package logger

import (
	"strconv"

	"github.com/kateeridumb/Library/internal/util"
	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// ---- Cuenta / auth ----

// UserID usa el id numérico del registro de credenciales.
func UserID(v int64) zap.Field { return zap.String("user_id", strconv.FormatInt(v, 10)) }

func Username(v string) zap.Field { return zap.String("username", v) }
func Role(v string) zap.Field     { return zap.String("role", v) }

// Email siempre se loguea enmascarado.
func Email(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

// Token loguea solo el prefijo de un token opaco o JWT.
func Token(v string) zap.Field { return zap.String("token", util.MaskToken(v)) }

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// ---- Genéricos ----

func String(key, v string) zap.Field  { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
