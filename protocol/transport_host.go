package protocol

import (
	"errors"
	"io"
	"sync"
	"time"
)

var (
	ErrTransportStopped = errors.New("transport stopped")
	ErrReceiveTimeout   = errors.New("receive timeout")
)

// HostTransport reads frames from the firmware on the host side. A background
// goroutine feeds the port into a FIFO, decodes frames and queues copies of
// them for ReceiveMessage.
type HostTransport struct {
	port io.ReadCloser

	inputBuffer *FifoBuffer
	decoder     *FrameDecoder
	readMutex   sync.Mutex

	messages chan *Message

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	readErr  error
}

// NewHostTransport creates a host-side transport and starts reading port
func NewHostTransport(port io.ReadCloser) *HostTransport {
	t := &HostTransport{
		port:        port,
		inputBuffer: NewFifoBuffer(512),
		decoder:     NewFrameDecoder(),
		messages:    make(chan *Message, 16),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}

	go t.readLoop()

	return t
}

// ReceiveMessage returns the next frame, waiting at most timeout
func (t *HostTransport) ReceiveMessage(timeout time.Duration) (*Message, error) {
	select {
	case msg := <-t.messages:
		return msg, nil
	default:
	}

	select {
	case msg := <-t.messages:
		return msg, nil
	case <-time.After(timeout):
		return nil, ErrReceiveTimeout
	case <-t.doneChan:
		// drain what was decoded before the port went away
		select {
		case msg := <-t.messages:
			return msg, nil
		default:
		}
		if t.readErr != nil {
			return nil, t.readErr
		}
		return nil, ErrTransportStopped
	}
}

// Stats returns the frame decoder counters
func (t *HostTransport) Stats() DecoderStats {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()
	return t.decoder.Stats()
}

// readLoop continuously reads from the port and processes frames
func (t *HostTransport) readLoop() {
	defer close(t.doneChan)

	buffer := make([]byte, 256)

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		n, err := t.port.Read(buffer)
		if n > 0 {
			t.feed(buffer[:n])
		}
		if err != nil {
			select {
			case <-t.stopChan:
				// the port was closed under us
			default:
				if !errors.Is(err, io.EOF) {
					t.readErr = err
				}
			}
			return
		}
	}
}

// feed pushes data through the FIFO, which may take several passes when a
// read is larger than the free space.
func (t *HostTransport) feed(data []byte) {
	t.readMutex.Lock()
	defer t.readMutex.Unlock()

	for len(data) > 0 {
		n := t.inputBuffer.Write(data)
		data = data[n:]
		t.decoder.Receive(t.inputBuffer, t.dispatchMessage)
		if n == 0 && t.inputBuffer.Free() == 0 {
			// no frame fits in the buffer: drop it and resynchronize
			t.inputBuffer.Reset()
			t.decoder.Reset()
		}
	}
}

// dispatchMessage queues a copy of msg, dropping the oldest queued frame when
// the reader falls behind.
func (t *HostTransport) dispatchMessage(msg Message) {
	payload := make([]byte, len(msg.Payload))
	copy(payload, msg.Payload)
	msg.Payload = payload

	select {
	case t.messages <- &msg:
	default:
		select {
		case <-t.messages:
		default:
		}
		t.messages <- &msg
	}
}

// Close stops the transport and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.stopChan)
		err = t.port.Close() // unblocks a pending Read
		<-t.doneChan
	})
	return err
}
