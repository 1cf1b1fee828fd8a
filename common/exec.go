package common

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// RunCommand executes an external tool with the given arguments and returns
// its stdout. The context bounds the run; on timeout or cancellation the
// process is killed and the context error is wrapped into the result.
//
// The conversion and OCR pipelines shell out to libreoffice, pdftoppm and
// tesseract through this helper so all tool invocations share the same
// logging and error shape.
func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s timed out: %w", name, ctx.Err())
	}
	if err != nil {
		Logger.WithField("tool", name).WithError(err).Debugf("stderr: %s", stderr.String())
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, stderr.String())
	}
	return out.Bytes(), nil
}

// LookTool reports whether an external tool is available on PATH.
// Used at startup to warn early about missing OCR or conversion binaries.
func LookTool(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
