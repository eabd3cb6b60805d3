// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package credential

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Credential is a persisted host/port/key triple identifying one manager
// endpoint, in the single-line "host:port:hexkey" format.
type Credential struct {
	Host string
	Port uint16
	Key  SecretKey32
}

// String renders the credential as "host:port:hexkey".
func (c Credential) String() string {
	return fmt.Sprintf("%s:%d:%s", c.Host, c.Port, c.Key.String())
}

// ParseCredential parses the "host:port:hexkey" single-line form. The host
// component may itself contain colons only if it's the last two fields that
// are unambiguous (port is numeric, key is 64 hex chars), so parsing works
// from the right.
func ParseCredential(s string) (Credential, error) {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Credential{}, fmt.Errorf("credential: malformed line %q", s)
	}
	keyPart := s[idx+1:]
	rest := s[:idx]

	idx2 := strings.LastIndex(rest, ":")
	if idx2 < 0 {
		return Credential{}, fmt.Errorf("credential: malformed line %q", s)
	}
	portPart := rest[idx2+1:]
	host := rest[:idx2]

	port, err := strconv.ParseUint(portPart, 10, 16)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: malformed port in %q: %w", s, err)
	}
	key, err := ParseSecretKey32(keyPart)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: malformed key in %q: %w", s, err)
	}
	return Credential{Host: host, Port: uint16(port), Key: key}, nil
}

// Save writes the credential to path as a single line, creating or
// truncating the file with owner-only permissions since it holds a secret
// key in the clear.
func Save(path string, c Credential) error {
	return os.WriteFile(path, []byte(c.String()+"\n"), 0o600)
}

// Load reads and parses a single credential line from path.
func Load(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("credential: load %s: %w", path, err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return Credential{}, fmt.Errorf("credential: %s is empty", path)
	}
	return ParseCredential(lines[0])
}
