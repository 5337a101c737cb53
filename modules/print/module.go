package print

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/specialistvlad/ioclient/internal/handlers"
	"github.com/specialistvlad/ioclient/internal/registry"
)

// ComponentName is the registry name of the Printer.
const ComponentName = "print"

// Module implements the app.Module interface for this package. It prints
// the payload of every event in Events to Out.
type Module struct {
	Events []string
	Out    io.Writer
}

// Printer writes event payloads as JSON, one line per event.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter returns a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Print is the handler for every configured event.
func (p *Printer) Print(args ...any) error {
	if len(args) == 0 {
		p.write("      (null)")
		return nil
	}

	payload, err := sonic.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}
	p.write("      " + string(payload))
	return nil
}

func (p *Printer) write(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// Register provides the printer and tags it for each configured event.
func (m *Module) Register(r *registry.Registry, hs *handlers.Handlers) {
	if len(m.Events) == 0 {
		return
	}
	r.ProvideValue(ComponentName, NewPrinter(m.Out))
	for _, event := range m.Events {
		slog.Debug("Printing event payloads.", "event", event)
		hs.EventListener((*Printer)(nil), "Print", event)
	}
}
