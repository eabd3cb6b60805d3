// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package credential

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidPortRange is returned when a port range string fails to parse.
var ErrInvalidPortRange = fmt.Errorf("credential: invalid port range")

// PortRange is an inclusive range of ports, parsed from strings like
// "8080" (a single port) or "8080:8090" (inclusive range). EPHEMERAL
// (port 0) asks the OS to assign any free port.
type PortRange struct {
	Start uint16
	End   *uint16
}

// Ephemeral represents the OS-assigned ephemeral port.
var Ephemeral = PortRange{Start: 0}

// SinglePort returns a PortRange targeting exactly one port.
func SinglePort(port uint16) PortRange {
	return PortRange{Start: port}
}

// ParsePortRange parses "8080" or "8080:8090" into a PortRange.
func ParsePortRange(s string) (PortRange, error) {
	parts := strings.SplitN(s, ":", 2)
	start, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return PortRange{}, ErrInvalidPortRange
	}
	pr := PortRange{Start: uint16(start)}
	if len(parts) == 2 {
		end, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil {
			return PortRange{}, ErrInvalidPortRange
		}
		if end < start {
			return PortRange{}, ErrInvalidPortRange
		}
		endVal := uint16(end)
		pr.End = &endVal
	}
	return pr, nil
}

// IsEphemeral reports whether this range is exactly the ephemeral port.
func (p PortRange) IsEphemeral() bool {
	return p.Start == 0 && p.End == nil
}

// String renders the range back to its "start" or "start:end" form.
func (p PortRange) String() string {
	if p.End == nil {
		return strconv.FormatUint(uint64(p.Start), 10)
	}
	return fmt.Sprintf("%d:%d", p.Start, *p.End)
}

// Ports enumerates every port in the range, inclusive.
func (p PortRange) Ports() []uint16 {
	end := p.Start
	if p.End != nil {
		end = *p.End
	}
	ports := make([]uint16, 0, int(end)-int(p.Start)+1)
	for port := p.Start; ; port++ {
		ports = append(ports, port)
		if port == end {
			break
		}
	}
	return ports
}

// Pick binds to the first available port in the range on addr (an empty
// addr binds all interfaces) and returns it, immediately releasing the
// listener. For the ephemeral range this is equivalent to asking the OS for
// any free port.
func Pick(addr string, p PortRange) (uint16, error) {
	for _, port := range p.Ports() {
		ln, err := net.Listen("tcp", net.JoinHostPort(addr, strconv.Itoa(int(port))))
		if err != nil {
			continue
		}
		actual := ln.Addr().(*net.TCPAddr).Port
		_ = ln.Close()
		return uint16(actual), nil
	}
	return 0, fmt.Errorf("credential: no free port in range %s", p)
}
