package clipboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/jo-hoe/gopicker/internal/picker"
)

var ErrUnsupported = errors.New("system clipboard unsupported")

// NewClipboard returns the server-side clipboard named in the configuration.
// For "browser" it returns nil: the page writes the clipboard itself.
func NewClipboard(clipboardType string) (picker.Clipboard, error) {
	switch clipboardType {
	case "", "browser":
		return nil, nil
	case "system":
		return &SystemClipboard{}, nil
	default:
		return nil, fmt.Errorf("unsupported clipboard type: %s", clipboardType)
	}
}

// SystemClipboard writes to the clipboard of the host running the server.
// Only meaningful when the server runs on the user's own machine.
type SystemClipboard struct{}

func (c *SystemClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard keeps the last written text in process. Nothing outside the
// process can read it, so it is only handed in through core.WithClipboard.
type MemoryClipboard struct {
	mu     sync.Mutex
	text   string
	writes int
}

func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{}
}

func (c *MemoryClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.writes++
	return nil
}

func (c *MemoryClipboard) ReadText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Writes counts successful writes
func (c *MemoryClipboard) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}
