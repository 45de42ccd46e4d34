package supervisor

import "time"

// ScheduleRestart coalesces a burst of change events into one restart.
// Each call cancels any outstanding pending restart and schedules a new one
// for a full quiet window from now (sliding-window debounce). If a restart
// is already in flight, the new schedule simply fires later as a follow-up
// restart once the in-flight one releases the lock.
//
// This is the change-event callback path: it holds the lock only for the
// cancel-and-reschedule step and never blocks on process-exit waits.
func (s *Supervisor) ScheduleRestart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		return
	}

	if s.pending != nil {
		s.pending.timer.Stop()
	}

	p := &pendingRestart{}
	p.timer = time.AfterFunc(s.restartDelay, func() { s.firePending(p) })
	s.pending = p
	s.setPendingFlag(true)

	s.logger.Debug("restart_scheduled", "delay", s.restartDelay.String())
}

// firePending consumes a pending restart once its quiet window elapses.
// A fire whose slot has been replaced by a newer schedule discards itself:
// timer.Stop cannot stop a timer whose function has already been invoked,
// so the supersede check under the lock is what makes cancellation atomic
// with respect to firing.
func (s *Supervisor) firePending(p *pendingRestart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != p {
		return // superseded or cancelled
	}
	s.pending = nil
	s.setPendingFlag(false)

	if s.down {
		return
	}

	// Errors are already reported by the restart path; the supervisor
	// stays stopped until the next change event.
	_ = s.restartLocked()
}

// PendingRestart reports whether a restart is currently scheduled. Reads the
// advisory snapshot rather than the lifecycle lock, so a dashboard poll never
// stalls behind an in-flight stop.
func (s *Supervisor) PendingRestart() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.pendingSet
}
