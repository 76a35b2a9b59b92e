package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/pisciapp/backend/internal/util"
)

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field { return zap.String("method", v) }
func Path(v string) zap.Field { return zap.String("path", v) }
func Status(v int) zap.Field { return zap.Int("status", v) }
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Dominio

func UserID(v string) zap.Field { return zap.String("user_id", v) }
func SessionID(v string) zap.Field { return zap.String("session_id", v) }
func Role(v string) zap.Field { return zap.String("role", v) }
func Job(v string) zap.Field { return zap.String("job", v) }

// Email se loguea enmascarado; el correo completo no sale a los logs.
func Email(v string) zap.Field { return zap.String("email", util.MaskEmail(v)) }

// Sistema

func Layer(v string) zap.Field { return zap.String("layer", v) }
func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field { return zap.String("op", v) }
func Err(err error) zap.Field { return zap.Error(err) }
func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
