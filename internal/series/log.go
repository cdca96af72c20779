package series

import "lcsweep/internal"

func warnf(format string, args ...interface{}) {
	internal.DefaultLogger.Warn("[Series] "+format, args...)
}
