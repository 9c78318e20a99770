package logger

import (
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request ID
const RequestIDKey = "request_id"

// New builds the process logger. Production uses JSON with ISO8601
// timestamps, anything else a colored development console. When sink is
// non-nil (the CloudWatch Logs writer) every entry is also written there as
// JSON.
func New(env string, sink io.Writer) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if sink == nil {
		return config.Build()
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), zapcore.AddSync(os.Stdout), level)

	jsonConfig := config.EncoderConfig
	jsonConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	sinkCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(sink), level)

	return zap.New(zapcore.NewTee(consoleCore, sinkCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// RequestID tags every request with X-Request-ID, generating one if the
// caller did not send it, and echoes it back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// FromContext returns base annotated with the request ID stored on c.
func FromContext(c *gin.Context, base *zap.Logger) *zap.Logger {
	if rid := c.GetString(RequestIDKey); rid != "" {
		return base.With(zap.String(RequestIDKey, rid))
	}
	return base
}
