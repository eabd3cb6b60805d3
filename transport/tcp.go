// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"net"
)

// DialTCP connects to addr over TCP and returns a reconnectable Carrier:
// calling Reconnect re-dials the same address.
func DialTCP(ctx context.Context, addr string) (Carrier, error) {
	dial := func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
	conn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	return NewConnCarrier(conn, dial), nil
}

// NewTCPCarrier wraps an already-accepted TCP connection. The returned
// Carrier does not support Reconnect (an accepted server-side connection has
// no address of its own to redial); wrap with NewConnCarrier directly and
// supply a Dialer if the caller can provide one.
func NewTCPCarrier(conn *net.TCPConn) Carrier {
	return NewConnCarrier(conn, nil)
}
