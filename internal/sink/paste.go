package sink

import (
	"runtime"

	"github.com/micmonay/keybd_event"
)

// sendPasteKeystroke injects the platform paste chord into the focused app:
// Cmd+V on macOS, Ctrl+V elsewhere.
func sendPasteKeystroke() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	if runtime.GOOS == "darwin" {
		kb.HasSuper(true)
	} else {
		kb.HasCTRL(true)
	}
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}
