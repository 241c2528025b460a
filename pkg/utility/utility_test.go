package utility

import (
	"log/slog"

	"github.com/bwestlin/pi-home-info/pkg/log"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}
