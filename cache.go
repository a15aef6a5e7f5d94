package observer

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache shared by expression rules.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *wrapperConfig) {
		cfg.programCache = cache
	}
}
