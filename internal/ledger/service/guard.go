package service

import "almoner/pkg/platform/sentinel"

// The execution model allows no true parallelism over mutating operations:
// mu gives them a total order. The remaining hazard is reentrancy. While a
// withdrawal is inside its external-transfer step the payout target could
// call back into donate or withdraw; mu is released during that window (the
// transfer must not block the whole ledger), so the locked flag is what trips
// the nested call.

// acquire enters the donate/withdraw critical section. On success mu is held
// and the reentrancy flag is set; the caller must guarantee release on every
// exit path.
func (s *Service) acquire() error {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ReentrantRejected.Inc()
		}
		return sentinel.ErrReentrantCall
	}
	s.locked = true
	return nil
}

// release leaves the critical section. mu must be held.
func (s *Service) release() {
	s.locked = false
	s.mu.Unlock()
}
