package api

import "sync"

// hub fans stream messages out to connected websocket clients. Slow
// clients miss messages rather than stall the tick loop.
type hub struct {
	mu      sync.Mutex
	next    uint64
	clients map[uint64]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[uint64]chan []byte)}
}

func (h *hub) join(buffer int) (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	ch := make(chan []byte, buffer)
	h.clients[h.next] = ch
	return h.next, ch
}

func (h *hub) leave(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}

// broadcast queues msg for every client and returns how many were skipped.
func (h *hub) broadcast(msg []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
