//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

const (
	whKeyboardLL  = 13
	wmKeydown     = 0x0100
	wmKeyup       = 0x0101
	wmSyskeydown  = 0x0104
	wmSyskeyup    = 0x0105
	wmQuit        = 0x0012
	llkhfInjected = 0x10
)

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// vk codes for keys we name. Anything unlisted comes out as "vk_0xNN" and
// simply never matches a combo.
var vkNames = map[uint32]string{
	0xA2: "ctrl_l", 0xA3: "ctrl_r", 0x11: "ctrl",
	0xA4: "alt_l", 0xA5: "alt_r", 0x12: "alt",
	0xA0: "shift_l", 0xA1: "shift_r", 0x10: "shift",
	0x5B: "cmd_l", 0x5C: "cmd_r",
	0x1B: "esc", 0x20: "space", 0x0D: "enter", 0x09: "tab", 0x08: "backspace",
	0x2D: "insert", 0x2E: "delete", 0x24: "home", 0x23: "end",
	0x21: "pageup", 0x22: "pagedown",
	0x25: "left", 0x26: "up", 0x27: "right", 0x28: "down",
}

func vkName(vk uint32) string {
	if n, ok := vkNames[vk]; ok {
		return n
	}
	if vk >= 'A' && vk <= 'Z' {
		return string(rune('a' + vk - 'A'))
	}
	if vk >= '0' && vk <= '9' {
		return string(rune(vk))
	}
	if vk >= 0x70 && vk <= 0x87 {
		return fmt.Sprintf("f%d", vk-0x70+1)
	}
	return fmt.Sprintf("vk_0x%X", vk)
}

// hookListener captures every physical key transition through a low-level
// keyboard hook. Events are observed, never swallowed, so typing stays
// unaffected while the combo is tracked.
type hookListener struct {
	events   chan Event
	threadID uint32
	stopOnce sync.Once
	done     chan struct{}
}

// NewListener returns the platform key listener.
func NewListener() Listener {
	return &hookListener{
		events: make(chan Event, 64),
		done:   make(chan struct{}),
	}
}

func (l *hookListener) Events() <-chan Event { return l.events }

func (l *hookListener) Start() error {
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(l.done)

		user32 := syscall.NewLazyDLL("user32.dll")
		kernel32 := syscall.NewLazyDLL("kernel32.dll")
		procSetWindowsHookExW := user32.NewProc("SetWindowsHookExW")
		procUnhookWindowsHookEx := user32.NewProc("UnhookWindowsHookEx")
		procCallNextHookEx := user32.NewProc("CallNextHookEx")
		procGetMessageW := user32.NewProc("GetMessageW")
		procGetCurrentThreadId := kernel32.NewProc("GetCurrentThreadId")

		callback := syscall.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) >= 0 {
				k := (*kbdllHookStruct)(unsafe.Pointer(lParam))
				if (k.flags & llkhfInjected) == 0 {
					var ev Event
					switch uint32(wParam) {
					case wmKeydown, wmSyskeydown:
						ev = Event{Key: vkName(k.vkCode), Pressed: true}
					case wmKeyup, wmSyskeyup:
						ev = Event{Key: vkName(k.vkCode), Pressed: false}
					}
					if ev.Key != "" {
						select {
						case l.events <- ev:
						default:
						}
					}
				}
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, _ := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed")
			return
		}

		tid, _, _ := procGetCurrentThreadId.Call()
		l.threadID = uint32(tid)
		errCh <- nil

		var msg struct {
			Hwnd    uintptr
			Message uint32
			WParam  uintptr
			LParam  uintptr
			Time    uint32
			PtX     int32
			PtY     int32
		}
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}

		procUnhookWindowsHookEx.Call(hook)
		close(l.events)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timeout installing keyboard hook")
	}
}

func (l *hookListener) Stop() {
	l.stopOnce.Do(func() {
		// threadID stays 0 when Start failed or timed out; the hook
		// goroutine may be wedged, so there is nothing to wait for.
		if l.threadID == 0 {
			return
		}
		user32 := syscall.NewLazyDLL("user32.dll")
		procPostThreadMessageW := user32.NewProc("PostThreadMessageW")
		procPostThreadMessageW.Call(uintptr(l.threadID), uintptr(wmQuit), 0, 0)
		select {
		case <-l.done:
		case <-time.After(2 * time.Second):
		}
	})
}
