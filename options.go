package csp

// ExHandler recovers a panic raised inside a Chan's transducer step
// function. If it returns ok==true, recovered is appended directly to the
// channel's buffer, bypassing the rest of the transducer (spec §4.3's
// "recovery value"). If it returns ok==false, the failing input is
// silently dropped. The default ExHandler re-panics, matching
// chanpy/channel.py's nop_ex_handler.
type ExHandler func(err error) (recovered any, ok bool)

func defaultExHandler(err error) (any, bool) {
	panic(err)
}

// chanConfig holds the resolved configuration built by ChanOption values.
type chanConfig struct {
	buf       Buffer
	xform     Transducer
	hasXform  bool
	exHandler ExHandler
	hasEx     bool
	logger    Logger
}

// ChanOption configures a Chan at construction time, mirroring
// eventloop/options.go's LoopOption pattern.
type ChanOption interface {
	applyChan(*chanConfig) error
}

type chanOptionFunc func(*chanConfig) error

func (f chanOptionFunc) applyChan(cfg *chanConfig) error { return f(cfg) }

// WithBuffer gives the Chan a Buffer; without one, the Chan is an
// unbuffered rendezvous channel.
func WithBuffer(buf Buffer) ChanOption {
	return chanOptionFunc(func(cfg *chanConfig) error {
		cfg.buf = buf
		return nil
	})
}

// WithTransducer embeds a Transducer on the Chan's put path. Requires
// WithBuffer also be supplied — spec §6: "if xform is provided, buf is
// required".
func WithTransducer(xform Transducer) ChanOption {
	return chanOptionFunc(func(cfg *chanConfig) error {
		cfg.xform = xform
		cfg.hasXform = true
		return nil
	})
}

// WithExHandler supplies the handler a Chan routes transducer panics
// through. Requires WithTransducer also be supplied — spec §6: "if
// ex_handler is provided, xform is required".
func WithExHandler(h ExHandler) ChanOption {
	return chanOptionFunc(func(cfg *chanConfig) error {
		cfg.exHandler = h
		cfg.hasEx = true
		return nil
	})
}

// WithLogger attaches a structured Logger to the Chan. Without one, a
// Chan uses NewNoopLogger().
func WithLogger(l Logger) ChanOption {
	return chanOptionFunc(func(cfg *chanConfig) error {
		cfg.logger = l
		return nil
	})
}

func resolveChanOptions(opts []ChanOption) (*chanConfig, error) {
	cfg := &chanConfig{
		xform:     identityTransducer,
		exHandler: defaultExHandler,
		logger:    NewNoopLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyChan(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = NewNoopLogger()
	}
	if cfg.hasXform && cfg.buf == nil {
		return nil, &TypeError{Message: "WithTransducer requires WithBuffer"}
	}
	if cfg.hasEx && !cfg.hasXform {
		return nil, &TypeError{Message: "WithExHandler requires WithTransducer"}
	}
	return cfg, nil
}

// altConfig holds the resolved configuration built by AltOption values.
type altConfig struct {
	priority   bool
	hasDefault bool
	defaultVal any
}

// AltOption configures an Alt call.
type AltOption interface {
	applyAlt(*altConfig)
}

type altOptionFunc func(*altConfig)

func (f altOptionFunc) applyAlt(cfg *altConfig) { f(cfg) }

// WithPriority makes Alt try candidate ops in the order given, rather
// than a uniform-random permutation.
func WithPriority() AltOption {
	return altOptionFunc(func(cfg *altConfig) { cfg.priority = true })
}

// WithDefault makes Alt resolve immediately with an AltResult whose Val is
// val, Default is true and Chan is nil if no candidate op can complete
// without parking.
func WithDefault(val any) AltOption {
	return altOptionFunc(func(cfg *altConfig) {
		cfg.hasDefault = true
		cfg.defaultVal = val
	})
}

func resolveAltOptions(opts []AltOption) *altConfig {
	cfg := &altConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAlt(cfg)
		}
	}
	return cfg
}
