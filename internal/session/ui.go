package session

import "time"

// Status message, collector and throttle bookkeeping. These live on the
// session so every scheduled task can be positively cancelled before the
// state it acts on is torn down.

// SetMessage installs a fresh status message handle.
func (s *Session) SetMessage(ref *MessageRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = ref
	if ref != nil {
		s.messageCreatedAt = time.Now()
	} else {
		s.messageCreatedAt = time.Time{}
	}
}

func (s *Session) Message() *MessageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// MessageAge reports how long the current handle has been alive.
func (s *Session) MessageAge() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message == nil {
		return 0
	}
	return time.Since(s.messageCreatedAt)
}

// DropMessage forgets the handle and the diff cache so the next ensure call
// recreates from scratch.
func (s *Session) DropMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = nil
	s.messageCreatedAt = time.Time{}
	s.lastPayload = nil
	s.lastUpdate = time.Time{}
}

// SetCollector binds a new interaction collector, stopping any previous one
// first. At most one collector exists per session.
func (s *Session) SetCollector(c Stopper) {
	s.mu.Lock()
	old := s.collector
	s.collector = c
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// StopCollector stops and discards the active collector, if any.
func (s *Session) StopCollector() {
	s.mu.Lock()
	old := s.collector
	s.collector = nil
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

func (s *Session) HasCollector() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collector != nil
}

// --- throttle/diff cache ---

func (s *Session) RenderCache() (payload any, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPayload, s.lastUpdate
}

func (s *Session) SetRenderCache(payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPayload = payload
	s.lastUpdate = time.Now()
}

// --- scheduled tasks ---

// SchedulePendingRefresh arms the trailing coalesced refresh timer. Returns
// false when one is already pending; duplicates are never stacked.
func (s *Session) SchedulePendingRefresh(d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingRefresh != nil {
		return false
	}
	s.pendingRefresh = time.AfterFunc(d, func() {
		s.mu.Lock()
		s.pendingRefresh = nil
		s.mu.Unlock()
		fn()
	})
	return true
}

func (s *Session) ClearPendingRefresh() {
	s.mu.Lock()
	t := s.pendingRefresh
	s.pendingRefresh = nil
	s.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

// ArmConfirmStop starts the confirm-stop expiry timer, replacing any running
// one (the old timer is stopped first).
func (s *Session) ArmConfirmStop(d time.Duration, fn func()) {
	s.mu.Lock()
	old := s.confirmStop
	s.confirmStop = time.AfterFunc(d, func() {
		s.mu.Lock()
		s.confirmStop = nil
		s.confirmExpiry = time.Time{}
		s.mu.Unlock()
		fn()
	})
	s.confirmExpiry = time.Now().Add(d)
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

// CancelConfirmStop stops the confirmation timer. Reports whether one was
// actually pending.
func (s *Session) CancelConfirmStop() bool {
	s.mu.Lock()
	t := s.confirmStop
	s.confirmStop = nil
	s.confirmExpiry = time.Time{}
	s.mu.Unlock()
	if t == nil {
		return false
	}
	t.Stop()
	return true
}

func (s *Session) ConfirmPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmStop != nil
}

// ArmPauseAutoStop starts the long-pause auto-stop timer, replacing any
// running one.
func (s *Session) ArmPauseAutoStop(d time.Duration, fn func()) {
	s.mu.Lock()
	old := s.pauseAutoStop
	s.pauseAutoStop = time.AfterFunc(d, func() {
		s.mu.Lock()
		s.pauseAutoStop = nil
		s.mu.Unlock()
		fn()
	})
	s.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

func (s *Session) CancelPauseAutoStop() {
	s.mu.Lock()
	t := s.pauseAutoStop
	s.pauseAutoStop = nil
	s.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

// StartAutoRefresh launches the periodic re-render driver. Returns false when
// one is already running; two drivers must never coexist for one session.
// The driver calls fn until stop() is invoked or fn returns false.
func (s *Session) StartAutoRefresh(interval time.Duration, fn func() bool) bool {
	s.mu.Lock()
	if s.autoRefresh != nil {
		s.mu.Unlock()
		return false
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	s.autoRefresh = ticker
	s.autoRefreshEnd = done
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !fn() {
					s.StopAutoRefresh()
					return
				}
			}
		}
	}()
	return true
}

// StopAutoRefresh cancels the periodic driver. Safe to call twice or when
// never started.
func (s *Session) StopAutoRefresh() {
	s.mu.Lock()
	ticker := s.autoRefresh
	done := s.autoRefreshEnd
	s.autoRefresh = nil
	s.autoRefreshEnd = nil
	s.mu.Unlock()
	if ticker != nil {
		ticker.Stop()
	}
	if done != nil {
		close(done)
	}
}

func (s *Session) AutoRefreshRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoRefresh != nil
}

// BeginManualRefresh claims the manual-refresh guard. Returns false when a
// manual refresh is already in flight.
func (s *Session) BeginManualRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manualRefresh {
		return false
	}
	s.manualRefresh = true
	return true
}

func (s *Session) EndManualRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualRefresh = false
}

// CancelAllTasks stops every scheduled task owned by the session. Called on
// teardown before the session leaves the registry.
func (s *Session) CancelAllTasks() {
	s.ClearPendingRefresh()
	s.CancelConfirmStop()
	s.CancelPauseAutoStop()
	s.StopAutoRefresh()
	s.StopCollector()
}
