package crawler

// frontierEntry is one pending page of a deep-crawl traversal.
type frontierEntry struct {
	url   string
	depth int
}

// frontier orders pending pages: FIFO for breadth-first, LIFO for
// depth-first. Not safe for concurrent use; the orchestrator owns it.
type frontier struct {
	entries []frontierEntry
	lifo    bool
}

func newFrontier(strategy string) *frontier {
	return &frontier{lifo: strategy == "dfs"}
}

// push appends entries in the given order. For DFS they are pushed reversed
// so the first discovered link is also the first popped.
func (f *frontier) push(entries ...frontierEntry) {
	if f.lifo {
		for i := len(entries) - 1; i >= 0; i-- {
			f.entries = append(f.entries, entries[i])
		}
		return
	}
	f.entries = append(f.entries, entries...)
}

func (f *frontier) pop() (frontierEntry, bool) {
	if len(f.entries) == 0 {
		return frontierEntry{}, false
	}
	if f.lifo {
		e := f.entries[len(f.entries)-1]
		f.entries = f.entries[:len(f.entries)-1]
		return e, true
	}
	e := f.entries[0]
	f.entries = f.entries[1:]
	return e, true
}

// popLevel drains every entry at the shallowest queued depth, preserving
// order. Used by BFS to schedule one level as a batch.
func (f *frontier) popLevel() []frontierEntry {
	if len(f.entries) == 0 {
		return nil
	}
	depth := f.entries[0].depth
	var level []frontierEntry
	rest := f.entries[:0]
	for _, e := range f.entries {
		if e.depth == depth {
			level = append(level, e)
		} else {
			rest = append(rest, e)
		}
	}
	f.entries = rest
	return level
}

func (f *frontier) empty() bool {
	return len(f.entries) == 0
}
