package logger

import (
	"go.uber.org/zap/zapcore"
)

type logSink interface {
	AddLog(entry LogEntry)
}

// DBCore is a custom Zap Core that tees entries into the DB writer
type DBCore struct {
	zapcore.Core
	sink   logSink
	fields []zapcore.Field
}

// NewDBCore wraps an existing core (like console logger) and adds DB logging
func NewDBCore(baseCore zapcore.Core, sink logSink) zapcore.Core {
	return &DBCore{
		Core: baseCore,
		sink: sink,
	}
}

// With keeps the tee when child loggers are derived
func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &DBCore{
		Core:   c.Core.With(fields),
		sink:   c.sink,
		fields: merged,
	}
}

// Write is called for every log entry
func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var companyId, executionId string

	for _, f := range append(c.fields, fields...) {
		switch f.Key {
		case "company_id":
			companyId = f.String
		case "execution_id":
			executionId = f.String
		}
	}

	c.sink.AddLog(LogEntry{
		Level:       entry.Level,
		Message:     entry.Message,
		CompanyId:   companyId,
		ExecutionId: executionId,
		Caller:      entry.Caller.Function,
	})

	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
