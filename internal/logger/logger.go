// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger configuration
type Config struct {
	LogsDirectory string
	LogFileFormat string
	TimeZone      string
	Level         string // DEBUG, INFO, WARN or ERROR; empty means INFO
}

const (
	levelDebug int32 = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levelNames = map[string]int32{
	"DEBUG": levelDebug,
	"INFO":  levelInfo,
	"WARN":  levelWarn,
	"ERROR": levelError,
	"FATAL": levelFatal,
}

var (
	initialized int32 // 0 = not initialized, 1 = initialized
	minLevel    = levelInfo
	logger      *log.Logger
	logFile     *os.File
	timeZone    = time.Local
	logFilePath string
	mu          sync.Mutex // protect against concurrent initialization
)

// SetupLogger initializes the logger with file and console output.
func SetupLogger(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if atomic.LoadInt32(&initialized) == 1 {
		return fmt.Errorf("logger already initialized")
	}

	if config.TimeZone == "" {
		config.TimeZone = "Local"
	}

	loc, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to load time zone %q: %w", config.TimeZone, err)
	}
	timeZone = loc

	if config.LogsDirectory == "" {
		config.LogsDirectory = "./logs"
	}
	if config.LogFileFormat == "" {
		config.LogFileFormat = "storefront_%s.log"
	}

	if err := os.MkdirAll(config.LogsDirectory, 0775); err != nil {
		return fmt.Errorf("failed to create logs directory %q: %w", config.LogsDirectory, err)
	}

	logFileName := fmt.Sprintf(config.LogFileFormat, time.Now().In(loc).Format("2006-01-02"))

	// Respect whether LogFileFormat is an absolute path or not
	if filepath.IsAbs(logFileName) {
		logFilePath = logFileName
	} else {
		logFilePath = filepath.Join(config.LogsDirectory, logFileName)
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0664)
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}
	logFile = f

	setLevel(config.Level)
	logger = log.New(io.MultiWriter(os.Stdout, f), "", 0)

	atomic.StoreInt32(&initialized, 1)
	LogInfo("Logger initialized, writing to %s", logFilePath)
	return nil
}

// SetupWriter points the logger at an arbitrary writer. Used by tests and by
// embedders that capture output themselves.
func SetupWriter(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()

	setLevel(level)
	logger = log.New(w, "", 0)
	atomic.StoreInt32(&initialized, 1)
}

// Close flushes and releases the log file, returning the logger to the
// uninitialized state.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	atomic.StoreInt32(&initialized, 0)
	logger = nil
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func setLevel(level string) {
	if l, ok := levelNames[strings.ToUpper(strings.TrimSpace(level))]; ok {
		atomic.StoreInt32(&minLevel, l)
		return
	}
	atomic.StoreInt32(&minLevel, levelInfo)
}

func GetLogFilePath() string {
	return logFilePath
}

func IsInitialized() bool {
	return atomic.LoadInt32(&initialized) == 1
}

func LogMessage(level string, message string, v ...interface{}) {
	if lv, ok := levelNames[level]; ok && lv < atomic.LoadInt32(&minLevel) {
		return
	}

	if !IsInitialized() {
		log.Printf("[%s] %s", level, fmt.Sprintf(message, v...))
		return
	}

	_, file, line, _ := runtime.Caller(2)
	fileName := filepath.Base(file)
	formattedMsg := fmt.Sprintf(message, v...)
	timestamp := time.Now().In(timeZone).Format("2006-01-02 15:04:05 MST")

	full := fmt.Sprintf("[%s] %s %s:%d - %s", level, timestamp, fileName, line, formattedMsg)
	logger.Println(full)
}

func LogDebug(message string, v ...interface{}) { LogMessage("DEBUG", message, v...) }
func LogInfo(message string, v ...interface{})  { LogMessage("INFO", message, v...) }
func LogWarn(message string, v ...interface{})  { LogMessage("WARN", message, v...) }
func LogError(message string, v ...interface{}) { LogMessage("ERROR", message, v...) }
func LogFatal(message string, v ...interface{}) {
	LogMessage("FATAL", message, v...)
	os.Exit(1)
}

func LogHTTPError(r *http.Request, status int, err error) {
	LogError("HTTP %d error for %s %s from %s: %v", status, r.Method, r.URL.Path, GetClientIP(r), err)
}

func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
