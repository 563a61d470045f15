package touch

const historyLen = 3

// history is a fixed-capacity queue of the most recent raw classifications.
// Pushing into a full queue evicts the oldest entry. The zero value holds
// historyLen NoTouch entries.
type history struct {
	slots [historyLen]State
	head  int // position of the oldest entry, overwritten on push
}

func (h *history) push(s State) {
	h.slots[h.head] = s
	h.head = (h.head + 1) % historyLen
}

// allEqual reports whether every slot holds s.
func (h *history) allEqual(s State) bool {
	for _, v := range h.slots {
		if v != s {
			return false
		}
	}
	return true
}

// values returns the entries oldest-first.
func (h *history) values() []State {
	out := make([]State, historyLen)
	for i := range out {
		out[i] = h.slots[(h.head+i)%historyLen]
	}
	return out
}
