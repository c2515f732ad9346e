package config

import "sync/atomic"

// Store is the process-wide holder of the current ThresholdConfig.
//
// Updates replace the whole value atomically. Load returns a copy, so a
// caller that loads once per frame sees one consistent configuration even
// while updates land concurrently.
type Store struct {
	cur atomic.Pointer[ThresholdConfig]
}

// NewStore returns a store seeded with initial. The initial value is not
// validated; pass Default() or the result of LoadFile.
func NewStore(initial ThresholdConfig) *Store {
	s := &Store{}
	s.cur.Store(&initial)
	return s
}

// Load returns a snapshot of the current configuration.
func (s *Store) Load() ThresholdConfig {
	return *s.cur.Load()
}

// Replace validates cfg and installs it.
func (s *Store) Replace(cfg ThresholdConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cur.Store(&cfg)
	return nil
}

// Apply decodes a JSON object on top of the current snapshot and installs
// the result. Fields absent from data keep their current values. On error
// the store is unchanged.
//
// Concurrent Apply calls are last-writer-wins; each one starts from the
// snapshot current when it began.
func (s *Store) Apply(data []byte) (ThresholdConfig, error) {
	cfg, err := Merge(s.Load(), data)
	if err != nil {
		return ThresholdConfig{}, err
	}
	s.cur.Store(&cfg)
	return cfg, nil
}
