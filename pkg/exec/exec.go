// Package exec implements the bounded worker pool and dependency-gated
// task scheduler that drives documentation regeneration.
package exec

import (
	"sync"
	"time"
)

// Task is one schedulable unit: an id, the dependency task ids still
// outstanding, and an opaque payload.
type Task struct {
	ID           int
	Dependencies []int
	Payload      interface{}
	running      bool
}

// TaskManager owns the task map behind a single mutex.
type TaskManager struct {
	mu      sync.Mutex
	tasks   map[int]*Task
	nextID  int
	queryID int
	Sync    func()
}

func NewTaskManager() *TaskManager {
	return &TaskManager{tasks: make(map[int]*Task)}
}

// AddTask registers a new task depending on dependencyIDs, returning
// its assigned id.
func (m *TaskManager) AddTask(dependencyIDs []int, payload interface{}) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	deps := append([]int{}, dependencyIDs...)
	id := m.nextID
	m.tasks[id] = &Task{ID: id, Dependencies: deps, Payload: payload}
	m.nextID++
	return id
}

// Next returns the first pending task with no outstanding
// dependencies, flips it to running, and triggers Sync every tenth
// query that hands out a task (queries are counted whether or not a
// task was available). Sync runs after the mutex is released: it
// serializes the whole tree to disk and must never hold the
// task-manager lock across that I/O.
func (m *TaskManager) Next() (*Task, bool) {
	m.mu.Lock()

	m.queryID++
	triggerSync := m.queryID%10 == 0

	var found *Task
	for _, t := range m.tasks {
		if len(t.Dependencies) == 0 && !t.running {
			t.running = true
			found = t
			break
		}
	}
	sync := m.Sync
	m.mu.Unlock()

	if found != nil && triggerSync && sync != nil {
		sync()
	}
	return found, found != nil
}

// Complete removes id from the task map and drops it from every other
// task's dependency list, unblocking dependents.
func (m *TaskManager) Complete(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tasks {
		t.Dependencies = removeInt(t.Dependencies, id)
	}
	delete(m.tasks, id)
}

func removeInt(xs []int, v int) []int {
	out := xs[:0]
	for _, x := range xs {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// AllSuccess reports whether every task has completed.
func (m *TaskManager) AllSuccess() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks) == 0
}

// TaskByID returns the task registered under id, or nil once it has
// completed or if it was never added. Exposed for callers (planner
// tests in particular) that need to inspect a task's declared
// dependencies without racing a running worker pool.
func (m *TaskManager) TaskByID(id int) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// Run starts workerCount goroutines, each looping: exit if all tasks
// are done, else fetch the next ready task, sleep 500ms if none is
// ready, else invoke handler(payload) and mark the task complete.
func Run(m *TaskManager, workerCount int, handler func(payload interface{})) {
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			defer wg.Done()
			for {
				if m.AllSuccess() {
					return
				}
				task, ok := m.Next()
				if !ok {
					time.Sleep(500 * time.Millisecond)
					continue
				}
				runHandler(handler, task.Payload)
				m.Complete(task.ID)
			}
		}()
	}
	wg.Wait()
}

// runHandler recovers from a handler panic at the worker boundary: the
// task is still marked complete by the caller so dependents are
// unblocked.
func runHandler(handler func(payload interface{}), payload interface{}) {
	defer func() {
		_ = recover()
	}()
	handler(payload)
}
