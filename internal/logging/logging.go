// Package logging provides categorized logging for the orbit engine.
// Each subsystem logs to its own named zap logger so a single run can be
// filtered by component. Before Init is called every logger is a no-op,
// which keeps library code usable from tests without setup.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config loading
	CategoryAgent   Category = "agent"   // Trajectory controller
	CategoryContext Category = "context" // Context manager, compaction
	CategoryMemory  Category = "memory"  // Episodic reflection memory
	CategoryRAG     Category = "rag"     // Agentic retrieval pipeline
	CategoryTools   Category = "tools"   // Tool registry and execution
	CategoryAPI     Category = "api"     // LLM API calls
	CategoryStore   Category = "store"   // Trace store
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Init installs the root logger. level is one of debug/info/warn/error;
// anything else defaults to info.
func Init(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
	return nil
}

// InitWith installs a caller-supplied logger (used by tests and by the CLI
// when it already built one).
func InitWith(logger *zap.Logger) {
	mu.Lock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}

// get returns the sugared logger for a category, or nil when uninitialized.
func get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	r := root
	mu.RUnlock()
	if r == nil {
		return nil
	}

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := r.Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// Debug logs a debug message to the given category.
func Debug(category Category, format string, args ...any) {
	if l := get(category); l != nil {
		l.Debugf(format, args...)
	}
}

// Info logs an info message to the given category.
func Info(category Category, format string, args ...any) {
	if l := get(category); l != nil {
		l.Infof(format, args...)
	}
}

// Warn logs a warning to the given category.
func Warn(category Category, format string, args ...any) {
	if l := get(category); l != nil {
		l.Warnf(format, args...)
	}
}

// Error logs an error to the given category.
func Error(category Category, format string, args ...any) {
	if l := get(category); l != nil {
		l.Errorf(format, args...)
	}
}

// Convenience functions, one pair per category.

func Boot(format string, args ...any)         { Info(CategoryBoot, format, args...) }
func BootDebug(format string, args ...any)    { Debug(CategoryBoot, format, args...) }
func Agent(format string, args ...any)        { Info(CategoryAgent, format, args...) }
func AgentDebug(format string, args ...any)   { Debug(CategoryAgent, format, args...) }
func AgentWarn(format string, args ...any)    { Warn(CategoryAgent, format, args...) }
func AgentError(format string, args ...any)   { Error(CategoryAgent, format, args...) }
func Context(format string, args ...any)      { Info(CategoryContext, format, args...) }
func ContextDebug(format string, args ...any) { Debug(CategoryContext, format, args...) }
func ContextWarn(format string, args ...any)  { Warn(CategoryContext, format, args...) }
func Memory(format string, args ...any)       { Info(CategoryMemory, format, args...) }
func MemoryDebug(format string, args ...any)  { Debug(CategoryMemory, format, args...) }
func RAG(format string, args ...any)          { Info(CategoryRAG, format, args...) }
func RAGDebug(format string, args ...any)     { Debug(CategoryRAG, format, args...) }
func RAGWarn(format string, args ...any)      { Warn(CategoryRAG, format, args...) }
func Tools(format string, args ...any)        { Info(CategoryTools, format, args...) }
func ToolsDebug(format string, args ...any)   { Debug(CategoryTools, format, args...) }
func ToolsError(format string, args ...any)   { Error(CategoryTools, format, args...) }
func API(format string, args ...any)          { Info(CategoryAPI, format, args...) }
func APIDebug(format string, args ...any)     { Debug(CategoryAPI, format, args...) }
func APIError(format string, args ...any)     { Error(CategoryAPI, format, args...) }
func Store(format string, args ...any)        { Info(CategoryStore, format, args...) }
func StoreDebug(format string, args ...any)   { Debug(CategoryStore, format, args...) }
