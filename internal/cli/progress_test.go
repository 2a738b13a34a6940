package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewProgress(&out, 3, "Simulating scenarios...")

	p.Step()
	p.Step()
	p.Step()
	p.Finish()

	assert.Contains(t, out.String(), "Simulating scenarios...")
	assert.Contains(t, out.String(), "3/3")
}

func TestProgress_Nil(t *testing.T) {
	var p *Progress
	assert.NotPanics(t, func() {
		p.Step()
		p.Finish()
	})
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), "saved")
	assert.Contains(t, FormatError("boom"), ErrorIcon)
	assert.Contains(t, FormatWarning("careful"), WarningIcon)
	assert.Contains(t, FormatInfo("fyi"), "fyi")
	assert.Contains(t, FormatTitle("Forecast"), "Forecast")
	assert.Contains(t, RenderBox("Run saved", "id: abc"), "id: abc")
}
