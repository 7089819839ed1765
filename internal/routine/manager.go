package routine

import (
	"context"
	"errors"
	"sync"
)

// Handler is the body of a task. ctx is cancelled when the task is stopped,
// replaced or the manager closes.
type Handler func(ctx context.Context) error

var (
	ErrInvalidTask  = errors.New("routine: task needs an id and a handler")
	ErrTaskRunning  = errors.New("routine: task already running")
	ErrTaskNotFound = errors.New("routine: task not found")
	ErrClosed       = errors.New("routine: manager closed")
)

// Manager runs cancellable goroutines keyed by id. At most one task per id is
// live at any time.
type Manager struct {
	parent context.Context

	mu     sync.Mutex
	live   map[string]*Task
	closed bool
}

// Task is one unit of work. OnError sees every non-nil handler error,
// cancellation included.
type Task struct {
	ID      string
	Handler Handler
	OnError func(id string, err error)

	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed once the handler and OnError have returned and the id is free.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the task. Safe to call repeatedly and after completion.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

func NewManager(parent context.Context) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	return &Manager{
		parent: parent,
		live:   make(map[string]*Task),
	}
}

// Start launches task unless its id is already taken.
func (m *Manager) Start(task *Task) error {
	if !task.valid() {
		return ErrInvalidTask
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.launchLocked(task)
}

// Replace stops whatever runs under task.ID, waits for it and launches task.
// Concurrent callers each get their task launched in turn; the last one to
// launch stays live.
func (m *Manager) Replace(task *Task) error {
	if !task.valid() {
		return ErrInvalidTask
	}

	for {
		m.mu.Lock()
		current, taken := m.live[task.ID]
		if !taken {
			err := m.launchLocked(task)
			m.mu.Unlock()
			return err
		}
		m.mu.Unlock()

		current.cancel()
		<-current.done
	}
}

// Running reports whether a task is live under id.
func (m *Manager) Running(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[id]
	return ok
}

// Stop cancels the task under id and waits for it.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	task, ok := m.live[id]
	m.mu.Unlock()
	if !ok {
		return ErrTaskNotFound
	}

	task.cancel()
	<-task.done
	return nil
}

// Close stops every task and refuses new ones. Closing twice is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	tasks := make([]*Task, 0, len(m.live))
	for _, t := range m.live {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
	return nil
}

func (t *Task) valid() bool {
	return t != nil && t.ID != "" && t.Handler != nil
}

func (m *Manager) launchLocked(task *Task) error {
	if m.closed {
		return ErrClosed
	}
	if _, taken := m.live[task.ID]; taken {
		return ErrTaskRunning
	}

	ctx, cancel := context.WithCancel(m.parent)
	task.cancel = cancel
	task.done = make(chan struct{})
	m.live[task.ID] = task

	go m.run(ctx, task)
	return nil
}

func (m *Manager) run(ctx context.Context, task *Task) {
	defer close(task.done)

	err := task.Handler(ctx)
	task.cancel()

	m.mu.Lock()
	if m.live[task.ID] == task {
		delete(m.live, task.ID)
	}
	m.mu.Unlock()

	if err != nil && task.OnError != nil {
		task.OnError(task.ID, err)
	}
}
