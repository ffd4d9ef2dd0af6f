//
// Package ulog is a small leveled logger, trimmed from the style of
// u/ulog for use inside the sftp client core: Trace/Debug/Info/Error,
// a package level default, and a per-component Log that can be muted or
// named independently (used for the Session Channel's logging contract
// and for per-transfer diagnostics).
package ulog

import "log"

var (
	TraceEnabled = false
	DebugEnabled = false
)

func Tracef(format string, args ...interface{}) {
	if TraceEnabled {
		logf("TRACE: ", format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if DebugEnabled {
		logf("DEBUG: ", format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	logf("", format, args...)
}

func Errorf(format string, args ...interface{}) {
	logf("ERROR: ", format, args...)
}

func logf(prefix, format string, args ...interface{}) {
	if 0 == len(args) {
		log.Printf(prefix + format)
	} else {
		log.Printf(prefix+format, args...)
	}
}

// Log is a named logger, constructed per Client or per transfer, so log
// lines can be told apart when several sessions run in one process.
type Log struct {
	Name string
}

func NewLog(name string) *Log {
	return &Log{Name: name}
}

func (this *Log) Tracef(format string, args ...interface{}) {
	if TraceEnabled {
		logf("TRACE: "+this.Name+": ", format, args...)
	}
}

func (this *Log) Debugf(format string, args ...interface{}) {
	if DebugEnabled {
		logf("DEBUG: "+this.Name+": ", format, args...)
	}
}

func (this *Log) Infof(format string, args ...interface{}) {
	logf(this.Name+": ", format, args...)
}

func (this *Log) Errorf(format string, args ...interface{}) {
	logf("ERROR: "+this.Name+": ", format, args...)
}
