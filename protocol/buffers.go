package protocol

// InputBuffer is the receive side of a byte stream carrying frames
type InputBuffer interface {
	Data() []byte   // unread bytes, contiguous
	Available() int // len(Data())
	Pop(n int)      // drop n bytes from the front
}

// OutputBuffer collects an outgoing frame. The encoder writes the header
// first and patches the length byte once the payload is known.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer reads frames out of a fixed slice
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput holds exactly one frame in a static array so the firmware
// can encode telemetry without allocating. Bytes past MessageMax are dropped.
type ScratchOutput struct {
	buf [MessageMax]byte
	n   int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.n += copy(s.buf[s.n:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.n }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.n {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.n {
		return nil
	}
	return s.buf[pos:s.n]
}

// Result returns the encoded frame; it is overwritten by the next Reset
func (s *ScratchOutput) Result() []byte { return s.buf[:s.n] }

func (s *ScratchOutput) Reset() { s.n = 0 }

// FifoBuffer sits between the serial reader and the frame decoder. Data
// linearizes wrapped content into a spare array, so steady-state decoding
// does not allocate.
type FifoBuffer struct {
	buf   []byte
	spare []byte
	head  int
	count int
}

// NewFifoBuffer returns a FIFO holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:   make([]byte, capacity),
		spare: make([]byte, capacity),
	}
}

// Write appends as much of data as fits and returns the number of bytes taken
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	tail := (f.head + f.count) % len(f.buf)
	c := copy(f.buf[tail:], data[:n])
	copy(f.buf, data[c:n])
	f.count += n
	return n
}

func (f *FifoBuffer) Available() int { return f.count }

func (f *FifoBuffer) Free() int { return len(f.buf) - f.count }

func (f *FifoBuffer) IsEmpty() bool { return f.count == 0 }

// Data returns the unread bytes as one slice, valid until the next Write
func (f *FifoBuffer) Data() []byte {
	if f.head+f.count <= len(f.buf) {
		return f.buf[f.head : f.head+f.count]
	}
	c := copy(f.spare, f.buf[f.head:])
	copy(f.spare[c:], f.buf[:f.count-c])
	f.buf, f.spare = f.spare, f.buf
	f.head = 0
	return f.buf[:f.count]
}

func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.count)
	f.head = (f.head + n) % len(f.buf)
	f.count -= n
}

func (f *FifoBuffer) Reset() {
	f.head, f.count = 0, 0
}
