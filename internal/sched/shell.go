package sched

// jobFunc is a coroutine entry point, in its internal "takes a yield
// closure" form.
type jobFunc func(yield func())

// shell is the reusable goroutine backing a coroutine: a baton-pass
// rendezvous over a single channel, generalized from the resume/yield
// protocol used by this corpus's cooperative-coroutine packages so the
// underlying goroutine can be handed a new job and reused instead of
// exiting when one job finishes.
//
// The baton carries a bool instead of being closed on completion (as the
// simpler single-use version of this protocol does), precisely so the
// goroutine can loop back and wait for a new job afterward: true means
// "still alive, suspended at a yield point", false means "job finished".
type shell struct {
	jobCh chan jobFunc
	baton chan bool
}

func newShell() *shell {
	s := &shell{
		jobCh: make(chan jobFunc),
		baton: make(chan bool),
	}
	go s.loop()
	return s
}

func (s *shell) loop() {
	for body := range s.jobCh {
		// Handoff sync: blocks here until the first resume() of this job
		// performs its first receive. This is also exactly where a reused
		// shell sits parked, between jobs, doing no work at all.
		s.baton <- true

		body(func() {
			// Yielded: satisfies the in-flight resume()'s second receive...
			s.baton <- true
			// ...then immediately blocks on the *next* resume's handoff,
			// which is this coroutine's actual suspension point.
			s.baton <- true
		})

		s.baton <- false // finished
	}
}

// resume transfers control to whatever job is currently running on this
// shell (or about to start), and blocks until it next suspends (true) or
// finishes (false).
func (s *shell) resume() (alive bool) {
	if _, ok := <-s.baton; !ok {
		return false
	}
	return <-s.baton
}

// start hands body to the shell's goroutine as its next job. The shell
// must not already be running a job.
func (s *shell) start(body jobFunc) {
	s.jobCh <- body
}

// release lets the shell's goroutine exit instead of waiting for a new
// job, used when the stack pool has no room to keep it around.
func (s *shell) release() {
	close(s.jobCh)
}
