package downloader

import (
	"go.uber.org/zap"

	"github.com/guiyumin/ytfetch/internal/extractor"
)

// Severity orders events for display
type Severity int

const (
	Debug Severity = iota
	Info
	Success
	Warning
	Failure
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Failure:
		return "error"
	default:
		return "info"
	}
}

// EventKind identifies the step an event belongs to
type EventKind string

const (
	EventStart     EventKind = "start"
	EventOutputDir EventKind = "output_dir"
	EventMetadata  EventKind = "metadata"
	EventSelected  EventKind = "selected"
	EventFallback  EventKind = "fallback"
	EventProgress  EventKind = "progress"
	EventTranscode EventKind = "transcode"
	EventDone      EventKind = "done"
	EventFailed    EventKind = "failed"
	EventBatch     EventKind = "batch"
	EventSkipped   EventKind = "skipped"
)

// Event is a structured status update. Front ends decide how to render it.
type Event struct {
	Kind     EventKind
	Severity Severity
	Message  string
	URL      string

	Progress *extractor.Progress // EventProgress
	Fallback Fallback            // EventFallback
	Video    *extractor.Video    // EventMetadata
	Result   *Result             // EventDone, EventFailed

	// batch position, 1-based; zero outside batches
	Index int
	Total int
}

// Sink receives events
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event
var Discard Sink = SinkFunc(func(Event) {})

type multiSink []Sink

func (m multiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi fans events out to several sinks in order
func Multi(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// LogSink writes non-progress events to a zap logger
func LogSink(log *zap.Logger) Sink {
	return SinkFunc(func(e Event) {
		if e.Kind == EventProgress {
			return
		}
		fields := []zap.Field{zap.String("event", string(e.Kind))}
		if e.URL != "" {
			fields = append(fields, zap.String("url", e.URL))
		}
		if e.Fallback != "" {
			fields = append(fields, zap.String("fallback", string(e.Fallback)))
		}
		switch e.Severity {
		case Debug:
			log.Debug(e.Message, fields...)
		case Warning:
			log.Warn(e.Message, fields...)
		case Failure:
			log.Error(e.Message, fields...)
		default:
			log.Info(e.Message, fields...)
		}
	})
}
