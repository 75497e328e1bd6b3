package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"fluxdec/internal/report"
)

func TestPrintDecodeReportKeepsErrorText(t *testing.T) {
	rep := report.New("broken.scp")
	rep.AddFailure(7, 1, errors.New("malformed capture"))
	rep.Finalize()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	printDecodeReport(cmd, rep)

	out := buf.String()
	if !strings.Contains(out, "error: malformed capture") {
		t.Errorf("error message missing from table:\n%s", out)
	}
	if !strings.Contains(out, "7.1") {
		t.Errorf("failed track row missing:\n%s", out)
	}
}
