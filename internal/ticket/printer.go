package ticket

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Printer performs the physical or virtual print of a rendered ticket.
type Printer interface {
	Print(ctx context.Context, t Ticket, text string) error
}

// WriterPrinter writes tickets to w, separated by a form feed.
type WriterPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{w: w}
}

func (p *WriterPrinter) Print(ctx context.Context, t Ticket, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, text+"\f"); err != nil {
		return fmt.Errorf("writing ticket: %w", err)
	}
	return nil
}

// SpoolPrinter drops one file per ticket into a directory polled by the
// printer daemon. Files appear atomically via rename.
type SpoolPrinter struct {
	dir string
}

func NewSpoolPrinter(dir string) (*SpoolPrinter, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("checking spool dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spool path %s is not a directory", dir)
	}
	return &SpoolPrinter{dir: dir}, nil
}

func (p *SpoolPrinter) Print(ctx context.Context, t Ticket, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := fmt.Sprintf("%s-%s-%s.txt", t.PrintedAt.UTC().Format("20060102T150405.000"), t.Order.OrderNumber, t.Destination)
	tmp, err := os.CreateTemp(p.dir, ".ticket-*")
	if err != nil {
		return fmt.Errorf("creating spool file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("writing spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing spool file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(p.dir, name)); err != nil {
		return fmt.Errorf("publishing spool file: %w", err)
	}
	return nil
}
