package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger writing into logDir, creating the directory if needed.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	l := &Logger{logDir: logDir}

	infoFile, err := openLogFile(filepath.Join(logDir, InfoFile))
	if err != nil {
		return nil, err
	}
	warningFile, err := openLogFile(filepath.Join(logDir, WarningFile))
	if err != nil {
		return nil, err
	}
	errorFile, err := openLogFile(filepath.Join(logDir, ErrorFile))
	if err != nil {
		return nil, err
	}

	l.setupLoggers(
		io.MultiWriter(os.Stdout, infoFile),
		io.MultiWriter(os.Stdout, warningFile),
		io.MultiWriter(os.Stderr, errorFile),
	)
	return l, nil
}

// NewDiscard returns a Logger that drops everything. Used by tests and the CLI's quiet mode.
func NewDiscard() *Logger {
	l := &Logger{}
	l.setupLoggers(io.Discard, io.Discard, io.Discard)
	return l
}

// NewWriter returns a Logger that writes every level to w.
func NewWriter(w io.Writer) *Logger {
	l := &Logger{}
	l.setupLoggers(w, w, w)
	return l
}

func (l *Logger) setupLoggers(info, warning, errw io.Writer) {
	l.infoLog = log.New(info, "INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warning, "WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errw, "ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

func openLogFile(filename string) (*os.File, error) {
	return os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
}

// Dir returns the directory holding the log files, or "" for non-file loggers.
func (l *Logger) Dir() string {
	return l.logDir
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// CleanLogs truncates the named log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}
	file, err := os.OpenFile(filepath.Join(l.logDir, fileName), os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("Log file %s has been cleared.", fileName)
	return nil
}
