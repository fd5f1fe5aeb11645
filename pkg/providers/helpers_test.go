package providers

import (
	"github.com/mmorev/ctrender/pkg/logging"
)

func GetTestLogger() logging.Logger {
	logger := logging.New()
	logger.SetLevel("null")
	return logger
}
