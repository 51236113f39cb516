package hotkey

import (
	"context"
	"log/slog"

	hook "github.com/robotn/gohook"
)

// KeyEvent is one raw keyboard transition from the OS hook.
type KeyEvent struct {
	Sym  string
	Down bool
}

// Listen installs the global keyboard hook and forwards press and release
// transitions on the returned channel until ctx is cancelled. Unlike the
// OS-level registered-hotkey APIs, the raw hook reports key releases, which
// hold-to-record matching needs.
func Listen(ctx context.Context, logger *slog.Logger) <-chan KeyEvent {
	out := make(chan KeyEvent, 64)
	events := hook.Start()

	go func() {
		defer close(out)
		defer hook.End()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					logger.Warn("keyboard hook channel closed")
					return
				}
				var down bool
				switch ev.Kind {
				case hook.KeyDown, hook.KeyHold:
					down = true
				case hook.KeyUp:
					down = false
				default:
					continue
				}
				sym := hook.RawcodetoKeychar(ev.Rawcode)
				if sym == "" {
					continue
				}
				select {
				case out <- KeyEvent{Sym: sym, Down: down}:
				default:
					// the consumer is wedged; dropping a raw repeat is
					// preferable to blocking the hook thread
					logger.Debug("dropped key event", "sym", sym, "down", down)
				}
			}
		}
	}()

	return out
}
