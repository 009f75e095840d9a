package trigger

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultNotifyTimeout bounds Notify when ctx has no deadline
const DefaultNotifyTimeout = 5 * time.Minute

// Notify asks the daemon at addr to reconcile and waits for the ack. The
// ack arrives after the cycle finished.
func Notify(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultNotifyTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write([]byte(CommandUpdate)); err != nil {
		return fmt.Errorf("failed to send %s: %w", CommandUpdate, err)
	}

	buf := make([]byte, maxCommandSize)
	n, err := conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to read ack: %w", err)
	}

	if reply := strings.TrimSpace(string(buf[:n])); reply != Ack {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	return nil
}
