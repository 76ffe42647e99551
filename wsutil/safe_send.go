package wsutil

import "log/slog"

// SafeSend sends data to a client's send channel without panicking if the
// channel was closed by the hub. If the channel is full or closed, the
// message is dropped; a slow or gone client catches up on the next snapshot.
func SafeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("send on closed channel", "tag", "wsutil", "recovered", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}
