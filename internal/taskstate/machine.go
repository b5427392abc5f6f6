package taskstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"taskdeck/internal/gateway"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// ErrNotAuthenticated is returned when an operation is attempted with no
// signed-in user; nothing reaches the network in that case.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrEmptyTitle rejects task creation before any network call is issued.
var ErrEmptyTitle = errors.New("task title must not be empty")

type TasksGateway interface {
	ListTasks(ctx context.Context, userID int64) ([]gateway.Task, error)
	CreateTask(ctx context.Context, userID int64, title, description string) (gateway.Task, error)
	ReplaceTask(ctx context.Context, userID, taskID int64, title, description string) (gateway.Task, error)
	DeleteTask(ctx context.Context, userID, taskID int64) error
	SetTaskCompletion(ctx context.Context, userID, taskID int64, completed bool) (gateway.Task, error)
}

type State struct {
	Tasks   []gateway.Task
	Loading bool
	Err     string
	Filter  Filter
}

// Machine manages the local cache of the server's task collection. The cache
// is never the source of truth: every mutation waits for the server before
// touching it. Operations are not queued; concurrent mutations race and the
// last response wins.
type Machine struct {
	mu     sync.Mutex
	gw     TasksGateway
	userID func() (int64, bool)
	state  State
}

func NewMachine(gw TasksGateway, userID func() (int64, bool)) *Machine {
	return &Machine{
		gw:     gw,
		userID: userID,
		state:  State{Filter: FilterAll},
	}
}

func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.state
	out.Tasks = append([]gateway.Task(nil), m.state.Tasks...)
	return out
}

// Fetch replaces the local collection wholesale with the server's.
func (m *Machine) Fetch(ctx context.Context) error {
	userID, err := m.begin()
	if err != nil {
		return err
	}
	tasks, err := m.gw.ListTasks(ctx, userID)
	if err != nil {
		return m.fail(err)
	}
	m.mu.Lock()
	m.state.Tasks = tasks
	m.state.Loading = false
	m.mu.Unlock()
	return nil
}

func (m *Machine) Create(ctx context.Context, title, description string) (gateway.Task, error) {
	if strings.TrimSpace(title) == "" {
		return gateway.Task{}, ErrEmptyTitle
	}
	userID, err := m.begin()
	if err != nil {
		return gateway.Task{}, err
	}
	task, err := m.gw.CreateTask(ctx, userID, title, description)
	if err != nil {
		return gateway.Task{}, m.fail(err)
	}
	m.mu.Lock()
	m.state.Tasks = append(m.state.Tasks, task)
	m.state.Loading = false
	m.mu.Unlock()
	return task, nil
}

// Update sends a full-resource replace and swaps the matching local entry on
// success.
func (m *Machine) Update(ctx context.Context, taskID int64, title, description string) (gateway.Task, error) {
	userID, err := m.begin()
	if err != nil {
		return gateway.Task{}, err
	}
	task, err := m.gw.ReplaceTask(ctx, userID, taskID, title, description)
	if err != nil {
		return gateway.Task{}, m.fail(err)
	}
	m.replaceLocal(task)
	return task, nil
}

func (m *Machine) Delete(ctx context.Context, taskID int64) error {
	userID, err := m.begin()
	if err != nil {
		return err
	}
	if err := m.gw.DeleteTask(ctx, userID, taskID); err != nil {
		return m.fail(err)
	}
	m.mu.Lock()
	kept := m.state.Tasks[:0]
	for _, t := range m.state.Tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	m.state.Tasks = kept
	m.state.Loading = false
	m.mu.Unlock()
	return nil
}

// ToggleCompletion sends the logical negation of the task's last known local
// completed value to the dedicated completion endpoint.
func (m *Machine) ToggleCompletion(ctx context.Context, taskID int64) (gateway.Task, error) {
	m.mu.Lock()
	var current *gateway.Task
	for i := range m.state.Tasks {
		if m.state.Tasks[i].ID == taskID {
			current = &m.state.Tasks[i]
			break
		}
	}
	if current == nil {
		m.mu.Unlock()
		return gateway.Task{}, fmt.Errorf("task %d not found", taskID)
	}
	next := !current.Completed
	m.mu.Unlock()

	userID, err := m.begin()
	if err != nil {
		return gateway.Task{}, err
	}
	task, err := m.gw.SetTaskCompletion(ctx, userID, taskID, next)
	if err != nil {
		return gateway.Task{}, m.fail(err)
	}
	m.replaceLocal(task)
	return task, nil
}

// SetFilter is a pure state change; it never touches the network or the
// collection.
func (m *Machine) SetFilter(f Filter) {
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
	default:
		f = FilterAll
	}
	m.mu.Lock()
	m.state.Filter = f
	m.mu.Unlock()
}

// Filtered returns the collection through the current filter.
func (m *Machine) Filtered() []gateway.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]gateway.Task, 0, len(m.state.Tasks))
	for _, t := range m.state.Tasks {
		switch m.state.Filter {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func (m *Machine) begin() (int64, error) {
	userID, ok := m.userID()
	if !ok {
		return 0, ErrNotAuthenticated
	}
	m.mu.Lock()
	m.state.Loading = true
	m.state.Err = ""
	m.mu.Unlock()
	return userID, nil
}

func (m *Machine) fail(err error) error {
	m.mu.Lock()
	m.state.Loading = false
	m.state.Err = err.Error()
	m.mu.Unlock()
	return err
}

func (m *Machine) replaceLocal(task gateway.Task) {
	m.mu.Lock()
	for i := range m.state.Tasks {
		if m.state.Tasks[i].ID == task.ID {
			m.state.Tasks[i] = task
			break
		}
	}
	m.state.Loading = false
	m.mu.Unlock()
}
