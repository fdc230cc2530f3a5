package session

import (
	"time"

	"doha-explorer/config"
	"doha-explorer/models"
)

type options struct {
	greeting       string
	resetGreeting  string
	errorReply     string
	now            func() time.Time
	onChange       func(Snapshot)
	onPersisted    func(userID string, msg models.Message, err error)
	storeTimeout   time.Duration
	requestTimeout time.Duration
}

// Option configures a Manager.
type Option func(*options)

func defaultOptions() options {
	return options{
		greeting:     "Marhaba! 🌅 I'm your Doha Explorer. How can I assist you today?",
		errorReply:   "Connection lost...",
		now:          time.Now,
		storeTimeout: 10 * time.Second,
	}
}

// WithGreeting sets the seed message shown on a fresh conversation.
func WithGreeting(text string) Option {
	return func(o *options) { o.greeting = text }
}

// WithResetGreeting sets the seed message used by Reset. Defaults to the greeting.
func WithResetGreeting(text string) Option {
	return func(o *options) { o.resetGreeting = text }
}

// WithErrorReply sets the text of the synthetic bot message appended on completion failure.
func WithErrorReply(text string) Option {
	return func(o *options) { o.errorReply = text }
}

// WithClock sets the time source stamped on every message the Manager creates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver registers fn to receive a snapshot after conversation or
// request state changes. Snapshots arrive in version order; one superseded
// before delivery may be skipped. fn runs synchronously and must not call
// mutating Manager methods.
func WithObserver(fn func(Snapshot)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithPersistCallback registers fn to be told when a store write finished.
// It runs on the persistence goroutine, independent of conversation updates.
func WithPersistCallback(fn func(userID string, msg models.Message, err error)) Option {
	return func(o *options) { o.onPersisted = fn }
}

// WithStoreTimeout bounds each store read and write.
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) { o.storeTimeout = d }
}

// WithRequestTimeout bounds each completion call. Zero means no limit beyond the completer's own.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// OptionsFromConfig maps the session section of the app config to options.
func OptionsFromConfig(cfg config.SessionConfig) []Option {
	var opts []Option
	if cfg.Greeting != "" {
		opts = append(opts, WithGreeting(cfg.Greeting))
	}
	if cfg.ResetGreeting != "" {
		opts = append(opts, WithResetGreeting(cfg.ResetGreeting))
	}
	if cfg.ErrorReply != "" {
		opts = append(opts, WithErrorReply(cfg.ErrorReply))
	}
	if cfg.StoreTimeoutSeconds > 0 {
		opts = append(opts, WithStoreTimeout(time.Duration(cfg.StoreTimeoutSeconds)*time.Second))
	}
	return opts
}
