package anoncreds

import (
	"github.com/privacybydesign/anoncreds/revocation"
	"github.com/sirupsen/logrus"
)

// Logger is used by this package and by the revocation package. Replace it with SetLogger
// rather than by assignment, so that both packages keep logging to the same place.
var Logger = logrus.StandardLogger()

// SetLogger makes l the logger of this package and of the revocation package.
func SetLogger(l *logrus.Logger) {
	Logger = l
	revocation.Logger = l
}

func init() {
	SetLogger(Logger)
}
