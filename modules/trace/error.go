package trace

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
)

func Location(skip int) (string, int) {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return "?", line
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?", line
	}
	return fn.Name(), line
}

// Warnf records the message with its caller through logrus.
func Warnf(format string, a ...any) {
	fn, line := Location(2)
	logrus.Warn(fn, ":", line, " ", fmt.Sprintf(format, a...))
}
