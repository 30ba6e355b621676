package malloc

// ledger is the ordered chain of every block carved from the heap.
//
// Traversal from head visits each block once, oldest first. Blocks are only
// appended by heap extension and only removed when they are released while
// trailing.
type ledger struct {
	head *block
	tail *block
	n    int
}

// firstFit returns the oldest free block whose recorded size is at least size.
func (l *ledger) firstFit(size uintptr) *block {
	for b := l.head; b != nil; b = b.next() {
		if b.free && b.size >= size {
			return b
		}
	}
	return nil
}

// push appends b as the new tail.
func (l *ledger) push(b *block) {
	b.setNext(nil)
	if l.head == nil {
		l.head = b
	} else {
		l.tail.setNext(b)
	}
	l.tail = b
	l.n++
}

// popTail unlinks and returns the tail. There are no back-pointers, so the
// predecessor is found by walking from head.
func (l *ledger) popTail() *block {
	old := l.tail
	if old == nil {
		return nil
	}
	if l.head == old {
		l.head, l.tail = nil, nil
		l.n--
		return old
	}
	for b := l.head; b != nil; b = b.next() {
		if b.next() == old {
			b.setNext(nil)
			l.tail = b
			break
		}
	}
	l.n--
	return old
}

// walk calls fn for every block in ledger order until fn returns false.
func (l *ledger) walk(fn func(b *block) bool) {
	for b := l.head; b != nil; b = b.next() {
		if !fn(b) {
			return
		}
	}
}
