package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ConsoleNotifier prints notifications to a terminal. A terminal needs no
// consent, so permission is always granted.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Capability = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) Permission() Permission {
	return PermissionGranted
}

func (c *ConsoleNotifier) RequestPermission(context.Context) (Permission, error) {
	return PermissionGranted, nil
}

func (c *ConsoleNotifier) Show(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	marker := "🔔"
	if n.RequireInteraction {
		marker = "⚠️"
	}
	_, err := fmt.Fprintf(c.w, "%s %s: %s\n", marker, n.Title, n.Body)
	return err
}
