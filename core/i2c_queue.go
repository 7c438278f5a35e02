package core

// QueueLength is the number of slots in a request queue. One slot always stays
// empty so that front == rear means empty, leaving QueueLength-1 usable.
const QueueLength = 10

// RequestQueue is a circular FIFO of pending requests shared between
// foreground code and the bus interrupt.
//
// front indexes the oldest request and rear the first free slot, so queued
// requests occupy [front, rear) modulo QueueLength:
//   - empty: front == rear
//   - full:  rear+1 == front (mod QueueLength)
//
// Exported methods each run as one critical section. The bus, which already
// holds the critical section, uses the unexported forms.
type RequestQueue struct {
	slots [QueueLength]Request
	front uint8
	rear  uint8
}

func nextSlot(i uint8) uint8 {
	i++
	if i == QueueLength {
		return 0
	}
	return i
}

// Reset empties the queue.
func (q *RequestQueue) Reset() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	q.reset()
}

// IsEmpty reports whether no request is queued.
func (q *RequestQueue) IsEmpty() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return q.isEmpty()
}

// IsFull reports whether all usable slots are taken.
func (q *RequestQueue) IsFull() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return q.isFull()
}

// Len returns the number of queued requests.
func (q *RequestQueue) Len() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return q.len()
}

// Enqueue copies r into the queue. It returns false, adding nothing, if the
// queue is full.
func (q *RequestQueue) Enqueue(r Request) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return q.enqueue(r)
}

// Dequeue drops the oldest request. It does nothing on an empty queue.
func (q *RequestQueue) Dequeue() {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	q.dequeue()
}

// Front returns a copy of the oldest request, or false if the queue is empty.
func (q *RequestQueue) Front() (Request, bool) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	if q.isEmpty() {
		return Request{}, false
	}
	return q.slots[q.front], true
}

func (q *RequestQueue) reset() {
	q.front, q.rear = 0, 0
}

func (q *RequestQueue) isEmpty() bool {
	return q.front == q.rear
}

func (q *RequestQueue) isFull() bool {
	return nextSlot(q.rear) == q.front
}

func (q *RequestQueue) len() int {
	if q.rear >= q.front {
		return int(q.rear - q.front)
	}
	return QueueLength - int(q.front) + int(q.rear)
}

func (q *RequestQueue) enqueue(r Request) bool {
	if q.isFull() {
		return false
	}
	q.slots[q.rear] = r
	q.rear = nextSlot(q.rear)
	return true
}

func (q *RequestQueue) dequeue() {
	if q.isEmpty() {
		return
	}
	// drop the caller's buffer reference along with the request
	q.slots[q.front] = Request{}
	q.front = nextSlot(q.front)
}

// frontSlot is the slot index of the oldest request. Meaningless when empty.
func (q *RequestQueue) frontSlot() uint8 {
	return q.front
}

// at returns the request stored in slot i.
func (q *RequestQueue) at(i uint8) *Request {
	return &q.slots[i]
}
