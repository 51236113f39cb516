// Package notify shows desktop notifications for pipeline events.
package notify

import "github.com/gen2brain/beeep"

// Notify shows a desktop notification. Failures are ignored; a missed
// notification must never break the pipeline.
func Notify(title, message string) {
	_ = beeep.Notify(title, message, "")
}
