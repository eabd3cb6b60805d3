// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !windows

package transport

import "context"

// DialPipe is only meaningful on Windows; named-pipe carriers on other
// platforms should use DialUnix instead.
func DialPipe(ctx context.Context, path string) (Carrier, error) {
	return nil, ErrUnsupported
}
