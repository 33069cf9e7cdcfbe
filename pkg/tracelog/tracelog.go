// Package tracelog writes decoded transaction logs for humans.
//
// Each logged transaction gets a per-process sequence number and a rendered
// text block appended to a rotating log file. Failed transactions are always
// written; successful ones only when echoing is enabled. Structured
// diagnostics go to a zap logger, the rendered output to lumberjack.
package tracelog

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fortiblox/svmtrace/pkg/txlog"
)

// ErrClosed is returned when logging after Close.
var ErrClosed = errors.New("tracelog closed")

// Config holds trace logger configuration.
type Config struct {
	// Path is the log file path. Empty disables file output; rendered
	// text is then discarded and only diagnostics are emitted.
	Path string

	// EchoSuccess writes successful transactions as well as failed ones.
	EchoSuccess bool

	// MaxSizeMB is the file size that triggers rotation.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep.
	MaxBackups int

	// MaxAgeDays is the age in days after which rotated files are removed.
	MaxAgeDays int

	// Logger receives structured diagnostics. Nil defaults to zap.NewNop.
	Logger *zap.Logger
}

// DefaultConfig returns the default trace logger configuration.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// Logger renders and persists transaction logs.
type Logger struct {
	out         io.WriteCloser
	diag        *zap.Logger
	echoSuccess bool

	// counter assigns per-process sequence numbers, starting at 1.
	counter atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// New creates a trace logger.
func New(cfg Config) *Logger {
	diag := cfg.Logger
	if diag == nil {
		diag = zap.NewNop()
	}

	var out io.WriteCloser
	if cfg.Path != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	return &Logger{
		out:         out,
		diag:        diag,
		echoSuccess: cfg.EchoSuccess,
	}
}

// Log assigns the next sequence number to the transaction and appends its
// rendered form to the log file. The sequence number is returned even when
// rendering is skipped, so numbering stays aligned with the process's
// transaction stream.
func (l *Logger) Log(log *txlog.TransactionLog) (uint64, error) {
	seq := l.counter.Add(1)

	l.diag.Debug("transaction decoded",
		zap.Uint64("seq", seq),
		zap.String("signature", log.Signature.String()),
		zap.Bool("success", log.Status.Success),
		zap.Uint64("fee", log.Fee),
		zap.Uint64("compute", log.ComputeUsed),
		zap.Int("instructions", len(log.Instructions)),
	)

	if log.Status.Success && !l.echoSuccess {
		return seq, nil
	}
	if l.out == nil {
		return seq, nil
	}

	rendered := Render(seq, log)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return seq, ErrClosed
	}
	if _, err := io.WriteString(l.out, rendered); err != nil {
		l.diag.Error("write trace log", zap.Error(err), zap.Uint64("seq", seq))
		return seq, err
	}
	return seq, nil
}

// Seq returns the last assigned sequence number.
func (l *Logger) Seq() uint64 {
	return l.counter.Load()
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.out != nil {
		return l.out.Close()
	}
	return nil
}
