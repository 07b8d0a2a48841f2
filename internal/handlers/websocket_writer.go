package handlers

import (
	"strings"
	"sync"

	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"
)

// Log lines generated by the WebSocket path itself must never be pushed back
// through it, or every broadcast spawns another log line.
var defaultExcludePatterns = []string{
	"WebSocket client connected",
	"WebSocket client disconnected",
	"HTTP request",
	"HTTP response",
	"Serving firmware binary",
}

// WebSocketLogStreamer consumes log batches from arbor's context channel and
// pushes them to connected WebSocket clients
type WebSocketLogStreamer struct {
	handler         *WebSocketHandler
	channel         chan []arbormodels.LogEvent
	minLevel        levels.LogLevel
	excludePatterns []string
	done            chan struct{}
	wg              sync.WaitGroup
}

// NewWebSocketLogStreamer creates a log streamer. The returned channel (via
// Channel) must be registered on the arbor logger with SetChannel.
func NewWebSocketLogStreamer(handler *WebSocketHandler, minLevel string) *WebSocketLogStreamer {
	return &WebSocketLogStreamer{
		handler:         handler,
		channel:         make(chan []arbormodels.LogEvent, 10),
		minLevel:        parseLogLevel(minLevel),
		excludePatterns: defaultExcludePatterns,
		done:            make(chan struct{}),
	}
}

// Channel returns the channel arbor sends log batches to
func (s *WebSocketLogStreamer) Channel() chan []arbormodels.LogEvent {
	return s.channel
}

// Start launches the consumer goroutine
func (s *WebSocketLogStreamer) Start() {
	s.wg.Add(1)
	go s.consume()
}

// Stop terminates the consumer and waits for it to drain
func (s *WebSocketLogStreamer) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *WebSocketLogStreamer) consume() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case batch, ok := <-s.channel:
			if !ok {
				return
			}
			for _, event := range batch {
				s.broadcast(event)
			}
		}
	}
}

func (s *WebSocketLogStreamer) broadcast(event arbormodels.LogEvent) {
	level := plogToArborLevel(event.Level)
	if level < s.minLevel {
		return
	}

	for _, pattern := range s.excludePatterns {
		if strings.Contains(event.Message, pattern) {
			return
		}
	}

	s.handler.BroadcastLog(LogEntry{
		Timestamp: event.Timestamp.Format("15:04:05"),
		Level:     mapLevel(level),
		Message:   event.Message,
	})
}

// plogToArborLevel converts phuslu/log.Level to arbor levels.LogLevel
func plogToArborLevel(level plog.Level) levels.LogLevel {
	switch level {
	case plog.ErrorLevel:
		return levels.ErrorLevel
	case plog.WarnLevel:
		return levels.WarnLevel
	case plog.InfoLevel:
		return levels.InfoLevel
	case plog.DebugLevel:
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// parseLogLevel converts string log level to arbor levels.LogLevel
func parseLogLevel(level string) levels.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return levels.ErrorLevel
	case "warn", "warning":
		return levels.WarnLevel
	case "info":
		return levels.InfoLevel
	case "debug":
		return levels.DebugLevel
	default:
		return levels.InfoLevel
	}
}

// mapLevel maps arbor log levels to UI strings
func mapLevel(level levels.LogLevel) string {
	switch level {
	case levels.ErrorLevel:
		return "error"
	case levels.WarnLevel:
		return "warn"
	case levels.InfoLevel:
		return "info"
	case levels.DebugLevel:
		return "debug"
	default:
		return "info"
	}
}
