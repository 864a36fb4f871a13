package runstate

import (
	"strings"
	"sync"
)

// PriorSuccess keeps, per contract path, the bodies of successful creation
// responses so dependent tests (delete the object just created) can find
// them. Entries are accessed last-in first-out.
type PriorSuccess struct {
	mu     sync.Mutex
	stacks map[string][]string
}

// NewPriorSuccess returns an empty store.
func NewPriorSuccess() *PriorSuccess {
	return &PriorSuccess{stacks: make(map[string][]string)}
}

// Push records body as the most recent creation response for path.
func (p *PriorSuccess) Push(path, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stacks[path] = append(p.stacks[path], body)
}

// Pop removes and returns the most recent body recorded for path.
func (p *PriorSuccess) Pop(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stack := p.stacks[path]
	if len(stack) == 0 {
		return "", false
	}
	top := stack[len(stack)-1]
	p.stacks[path] = stack[:len(stack)-1]
	return top, true
}

// Peek returns the most recent body recorded for path without removing it.
func (p *PriorSuccess) Peek(path string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stack := p.stacks[path]
	if len(stack) == 0 {
		return "", false
	}
	return stack[len(stack)-1], true
}

// Len returns the number of bodies recorded for path.
func (p *PriorSuccess) Len(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stacks[path])
}

// ParentPath strips the last segment of a contract path:
// "/pets/{id}" becomes "/pets". A path without a parent yields "".
func ParentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}
