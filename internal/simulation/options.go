package simulation

import (
	"log/slog"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/model"
)

type options struct {
	logger     *slog.Logger
	seed       uint64
	settings   model.Settings
	recorder   engine.Recorder
	sessionIDs engine.SessionIDGenerator
}

// Option configures a Builder.
type Option func(*options)

// WithLogger sets the logger used during build and by the simulation.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSeed seeds the model's random source. Default: 0.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithSettings passes read-only settings to the model factory.
func WithSettings(s model.Settings) Option {
	return func(o *options) { o.settings = s.Clone() }
}

// WithRecorder records every tick and failure event of the simulation.
func WithRecorder(r engine.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithSessionIDGenerator replaces the UUIDv7 session id generator used when
// recording.
func WithSessionIDGenerator(g engine.SessionIDGenerator) Option {
	return func(o *options) { o.sessionIDs = g }
}

func defaultOptions() options {
	return options{
		logger:     slog.Default(),
		settings:   model.Settings{},
		sessionIDs: engine.UUIDv7Generator{},
	}
}
