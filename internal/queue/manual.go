package queue

import (
	"sort"
	"time"
)

// Manual is a Scheduler on a virtual clock. Nothing runs until the caller
// advances time, which makes retry and loop timing deterministic in tests.
type Manual struct {
	now   time.Duration
	seq   int
	tasks []scheduled
}

type scheduled struct {
	due  time.Duration
	seq  int
	task func()
}

func NewManual() *Manual { return &Manual{} }

// Now is the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration { return m.now }

// Pending is the number of tasks not yet run.
func (m *Manual) Pending() int { return len(m.tasks) }

// NextDelay reports how far in the future the next task is due.
func (m *Manual) NextDelay() (time.Duration, bool) {
	if len(m.tasks) == 0 {
		return 0, false
	}
	m.sort()
	return m.tasks[0].due - m.now, true
}

func (m *Manual) Post(task func()) { m.PostDelayed(0, task) }

func (m *Manual) PostDelayed(d time.Duration, task func()) {
	if task == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.seq++
	m.tasks = append(m.tasks, scheduled{due: m.now + d, seq: m.seq, task: task})
}

// Advance moves the clock forward by d, running every task that falls due,
// including tasks posted by tasks within the window. Returns tasks run.
func (m *Manual) Advance(d time.Duration) int {
	deadline := m.now + d
	ran := 0
	for {
		if len(m.tasks) == 0 {
			break
		}
		m.sort()
		next := m.tasks[0]
		if next.due > deadline {
			break
		}
		m.tasks = m.tasks[1:]
		if next.due > m.now {
			m.now = next.due
		}
		next.task()
		ran++
	}
	m.now = deadline
	return ran
}

// Step runs exactly the next task, jumping the clock to its due time.
func (m *Manual) Step() bool {
	if len(m.tasks) == 0 {
		return false
	}
	m.sort()
	next := m.tasks[0]
	m.tasks = m.tasks[1:]
	if next.due > m.now {
		m.now = next.due
	}
	next.task()
	return true
}

// RunUntilIdle steps until no task is left or limit tasks ran.
func (m *Manual) RunUntilIdle(limit int) int {
	ran := 0
	for ran < limit && m.Step() {
		ran++
	}
	return ran
}

func (m *Manual) sort() {
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
}
