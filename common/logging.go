// Package common provides shared infrastructure for the formbot services:
// the global structured logger, environment helpers, external tool execution
// and Vietnamese text utilities.
//
// The logging setup routes error-level entries to stderr and everything else
// to stdout so that container platforms and shell pipelines can treat the two
// streams differently.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log entries to stderr or stdout based on
// their level. It inspects the rendered output for the logrus level marker,
// which works with both the text and JSON formatters.
type OutputSplitter struct{}

// Write implements io.Writer for the splitter.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`)) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the global logger instance shared by all formbot services.
// Services may adjust its level and formatter at startup; all packages log
// through it so output routing and formatting stay uniform.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
