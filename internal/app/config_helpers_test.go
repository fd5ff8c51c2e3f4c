package app

import (
	"time"

	"github.com/samvad-hq/optimus/internal/config"
	"github.com/samvad-hq/optimus/pkg/optimus"
)

func testConfig(historyPath string) *config.Config {
	return &config.Config{
		AppName:                "optimus",
		LogLevel:               "debug",
		APIKey:                 "abc123",
		Endpoint:               "https://eu.optimus.test",
		Option:                 optimus.OptionOptimize,
		RequestTimeout:         time.Second,
		SourceTimeout:          time.Second,
		HistoryType:            "bbolt",
		HistoryPath:            historyPath,
		HistoryTTL:             time.Hour,
		HistoryCleanupInterval: time.Hour,
	}
}
