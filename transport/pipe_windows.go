// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build windows

package transport

import (
	"context"
	"os"

	"golang.org/x/sys/windows"
)

// DialPipe connects to a Windows named pipe at path (e.g.
// `\\.\pipe\relaynet`) and returns a Carrier. Named pipes offer no portable
// non-blocking mode, so the Carrier is backed by a blockingAdapter pump.
func DialPipe(ctx context.Context, path string) (Carrier, error) {
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(h), path)
	return newBlockingAdapter(f), nil
}
