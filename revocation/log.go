package revocation

import "github.com/sirupsen/logrus"

// Logger is set by the anoncreds package to its own logger.
var Logger = logrus.StandardLogger()
