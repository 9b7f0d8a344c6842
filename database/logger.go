package database

import (
	"sync/atomic"

	"github.com/go-pkgz/lgr"
)

type loggerHolder struct{ lgr.L }

var logger atomic.Value

func init() {
	logger.Store(loggerHolder{lgr.NoOp})
}

// SetLogger sends the package's debug output to l. Output is discarded until
// a logger is set; passing nil discards it again.
func SetLogger(l lgr.L) {
	if l == nil {
		l = lgr.NoOp
	}
	logger.Store(loggerHolder{l})
}

func logf(format string, args ...any) {
	logger.Load().(loggerHolder).Logf(format, args...)
}
