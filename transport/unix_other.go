// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !windows

package transport

import (
	"context"
	"net"
)

// DialUnix connects to a Unix domain socket at path and returns a
// reconnectable Carrier.
func DialUnix(ctx context.Context, path string) (Carrier, error) {
	dial := func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewConnCarrier(conn, dial), nil
}

// NewUnixCarrier wraps an already-accepted Unix domain socket connection.
func NewUnixCarrier(conn *net.UnixConn) Carrier {
	return NewConnCarrier(conn, nil)
}
