// Package logging provides prefixed, leveled loggers shared by all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

// header is the gommon header template used by every component logger.
const header = `${time_rfc3339} ${level} [${prefix}]`

var (
	mu      sync.Mutex
	level   = log.INFO
	output  io.Writer = os.Stdout
	loggers []*log.Logger
)

// New returns a logger for a component. Its level follows SetLevel.
func New(prefix string) *log.Logger {
	l := log.New(prefix)
	l.SetHeader(header)

	mu.Lock()
	defer mu.Unlock()
	l.SetLevel(level)
	l.SetOutput(output)
	loggers = append(loggers, l)
	return l
}

// ParseLevel converts a level name ("debug", "info", "warn", "error", "off").
func ParseLevel(name string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG, nil
	case "", "info":
		return log.INFO, nil
	case "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off":
		return log.OFF, nil
	}
	return log.INFO, fmt.Errorf("unknown log level: %s", name)
}

// SetLevel sets the level of all existing and future component loggers.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	level = lvl
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
	return nil
}

// SetOutput redirects all component loggers.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	for _, l := range loggers {
		l.SetOutput(w)
	}
}

// ShortID truncates an ID for log lines.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
