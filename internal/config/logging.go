package config

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Setup installs the apex handler and level named by the configuration.
func (l Log) Setup() error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch l.Format {
	case "json":
		log.SetHandler(json.New(os.Stderr))
	case "text", "":
		log.SetHandler(text.New(os.Stderr))
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", l.Format)
	}
	log.SetLevel(level)
	return nil
}
