package scanner

import (
	"huntsman/config"
	"huntsman/logger"
)

// reportAccessError logs an unreadable target at error level when the
// operator asked to see access errors, and at debug level otherwise. Either
// way the target is skipped and the scan continues.
func reportAccessError(cfg *config.Config, format string, args ...interface{}) {
	if cfg.ShowAccessErrors {
		logger.Errorf(format, args...)
	} else {
		logger.Debugf(format, args...)
	}
}
