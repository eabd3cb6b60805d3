// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log provides the one shared logrus logger used across this
// module's packages, with a small set of field-name constants so every
// component tags its entries the same way.
package log

import "github.com/sirupsen/logrus"

// Field names used consistently across packages, so operators can filter
// logs by any of them regardless of which component emitted the entry.
const (
	FieldComponent = "component"
	FieldConnID    = "conn_id"
	FieldChannelID = "channel_id"
	FieldReqID     = "req_id"
)

// base is the module-wide logger. Callers that need custom output wiring
// (tests, embedding applications) can call SetOutput/SetLevel on it, the
// same way docker-compose configures the package-level logrus logger
// directly rather than threading a logger through every function.
var base = logrus.StandardLogger()

// Logger returns the shared logrus logger.
func Logger() *logrus.Logger { return base }

// For returns an entry pre-tagged with component, for a package to derive
// further per-connection/channel/request entries from via WithField.
func For(component string) *logrus.Entry {
	return base.WithField(FieldComponent, component)
}
