// Package clipboard delivers transcripts into the focused application by
// writing the clipboard and synthesizing a paste keystroke.
package clipboard

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

const timestampLayout = "06 01 02 15:04:05 "

// Paste writes text to the clipboard, sends Ctrl+V, and restores the
// previous clipboard contents. When addTimestamp is set the text is
// prefixed with the current time.
func Paste(text string, addTimestamp bool) error {
	if addTimestamp {
		text = time.Now().Format(timestampLayout) + text
	}

	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	// give the clipboard owner time to settle before the keystroke
	time.Sleep(80 * time.Millisecond)

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return err
	}
	time.Sleep(120 * time.Millisecond)
	_ = clipboard.WriteAll(orig)
	return nil
}
