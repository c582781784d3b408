package storage

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Paired implements Store wrapping a pair of stores, one fast, one slow. Puts
// and deletes are written through to both members before returning, so the
// slow store stays as durable as it is on its own. Gets are served from the
// fast store if possible, otherwise from the slow store (and in this case the
// data is also propagated from the slow to the fast store, for next time that
// piece of data is requested). Keys are listed from the slow store, which is
// the authoritative one.
type Paired struct {
	fast Store
	slow Store
}

func NewPaired(fast, slow Store) Paired {
	return Paired{fast: fast, slow: slow}
}

func (s Paired) Get(key string) (value []byte, err error) {
	value, err = s.fast.Get(key)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrNotFound) {
		return
	}
	value, err = s.slow.Get(key)
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{
		"key": fmt.Sprintf("%.40q", key),
	})
	if ferr := s.fast.Put(key, value); ferr != nil {
		logger.WithField("err", ferr).Warn("Could not propagate from slow to fast")
	} else {
		logger.Debug("Propagated from slow to fast")
	}
	return value, nil
}

func (s Paired) Put(key string, value []byte) (err error) {
	if err = s.slow.Put(key, value); err != nil {
		return err
	}
	if ferr := s.fast.Put(key, value); ferr != nil {
		// The authoritative copy is written; the stale fast copy would
		// shadow it, so evict.
		log.WithFields(log.Fields{
			"key": fmt.Sprintf("%.40q", key),
			"err": ferr,
		}).Warn("Could not write through to fast store")
		if derr := s.fast.Delete(key); derr != nil {
			return fmt.Errorf("could not evict %.40q from fast store: %w", key, derr)
		}
	}
	return nil
}

func (s Paired) Delete(key string) (err error) {
	if err = s.fast.Delete(key); err != nil {
		return err
	}
	return s.slow.Delete(key)
}

func (s Paired) Keys() (keys []string, err error) {
	return s.slow.Keys()
}
