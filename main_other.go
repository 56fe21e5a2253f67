//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The system hotkey API must be driven from the main thread.
func main() {
	mainthread.Init(run)
}
