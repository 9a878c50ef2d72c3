// Package history 保存页面元素集合的快照，提供有界的撤销栈（不提供重做）。
package history

import "github.com/ByLCY/snipsheet/layout"

// DefaultDepth 为撤销栈的默认深度。
const DefaultDepth = 20

// Entry 记录某一页在变更前的元素集合。
type Entry struct {
	PageID   string
	Snapshot layout.Snapshot
}

// Manager 是有界的撤销栈，超出深度时丢弃最旧的条目。
// Manager 不加锁，与 layout.State 一样由 editor 串行访问。
type Manager struct {
	depth   int
	entries []Entry
}

// New creates a manager bounded to depth entries (<= 0 uses DefaultDepth).
func New(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{depth: depth}
}

// Push 记录页面当前状态，必须在变更之前调用。
func (m *Manager) Push(page *layout.Page) {
	if page == nil {
		return
	}
	m.PushSnapshot(page.ID, page.Snapshot())
}

// PushSnapshot 记录一个预先捕获的快照（例如手势开始时的状态）。
func (m *Manager) PushSnapshot(pageID string, snap layout.Snapshot) {
	m.entries = append(m.entries, Entry{PageID: pageID, Snapshot: snap})
	if over := len(m.entries) - m.depth; over > 0 {
		m.entries = append(m.entries[:0], m.entries[over:]...)
	}
}

// Undo 弹出最新的条目并恢复对应页面。栈为空时为空操作并返回 false。
// 若页面已被删除，条目被丢弃，仍返回 true 表示消耗了一次撤销。
func (m *Manager) Undo(state *layout.State) (string, bool) {
	if len(m.entries) == 0 {
		return "", false
	}
	e := m.entries[len(m.entries)-1]
	m.entries = m.entries[:len(m.entries)-1]
	page, err := state.Page(e.PageID)
	if err != nil {
		return e.PageID, true
	}
	page.Restore(e.Snapshot)
	return e.PageID, true
}

// DropPage 删除某页的全部条目，页面删除时调用。
func (m *Manager) DropPage(pageID string) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.PageID != pageID {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

// Len returns the number of undoable entries.
func (m *Manager) Len() int { return len(m.entries) }

// Depth returns the configured bound.
func (m *Manager) Depth() int { return m.depth }

// Clear empties the stack.
func (m *Manager) Clear() { m.entries = nil }
