package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/smazurov/lvdsbridge/pkg/lt9211c"
	"github.com/smazurov/lvdsbridge/pkg/lt9211c/lt9211ctest"
)

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestModesMarksDefault(t *testing.T) {
	out, err := runCmd(t, CreateModesCmd())
	if err != nil {
		t.Fatalf("modes failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != len(lt9211c.SupportedTimings())+1 {
		t.Fatalf("Expected header plus %d rows, got %d lines", len(lt9211c.SupportedTimings()), len(lines))
	}

	marked := 0
	for _, l := range lines[1:] {
		if strings.HasPrefix(l, "*") {
			marked++
			if !strings.Contains(l, "1920x1080") {
				t.Errorf("Default mode should be 1920x1080, got %q", l)
			}
		}
	}
	if marked != 1 {
		t.Errorf("Expected exactly one default mode, got %d", marked)
	}
}

func TestModesJSON(t *testing.T) {
	out, err := runCmd(t, CreateModesCmd(), "--json")
	if err != nil {
		t.Fatalf("modes failed: %v", err)
	}

	var timings []lt9211c.VideoTiming
	if err := json.Unmarshal([]byte(out), &timings); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(timings) != len(lt9211c.SupportedTimings()) {
		t.Errorf("Expected %d timings, got %d", len(lt9211c.SupportedTimings()), len(timings))
	}
}

func TestComputePLL(t *testing.T) {
	tests := []struct {
		arg     string
		wantKHz uint32
		mode    bool
	}{
		{"148500", 148500, false},
		{"148.5MHz", 148500, false},
		{"74250kHz", 74250, false},
		{"1920x1080@60", 148500, true},
		{"1920x1080", 148500, true},
	}

	for _, tt := range tests {
		res, err := computePLL(tt.arg)
		if err != nil {
			t.Errorf("computePLL(%q) failed: %v", tt.arg, err)
			continue
		}
		if res.PixelClockKHz != tt.wantKHz {
			t.Errorf("computePLL(%q) pclk = %d, want %d", tt.arg, res.PixelClockKHz, tt.wantKHz)
		}
		if (res.Timing != nil) != tt.mode {
			t.Errorf("computePLL(%q) timing set = %t, want %t", tt.arg, res.Timing != nil, tt.mode)
		}
		if res.TxPLL.PhyClockKHz != tt.wantKHz*7/2 {
			t.Errorf("computePLL(%q) phy clock = %d", tt.arg, res.TxPLL.PhyClockKHz)
		}
		if res.PCR != lt9211c.ComputePCR(tt.wantKHz) {
			t.Errorf("computePLL(%q) PCR mismatch", tt.arg)
		}
	}
}

func TestComputePLLErrors(t *testing.T) {
	tests := []struct {
		arg  string
		want error
	}{
		{"0", lt9211c.ErrInvalidClock},
		{"1280x1024@75", lt9211c.ErrNoMatchingMode},
	}
	for _, tt := range tests {
		if _, err := computePLL(tt.arg); !errors.Is(err, tt.want) {
			t.Errorf("computePLL(%q) = %v, want %v", tt.arg, err, tt.want)
		}
	}

	for _, arg := range []string{"fast", "axb", "1920x1080@sixty"} {
		if _, err := computePLL(arg); err == nil {
			t.Errorf("computePLL(%q) should fail", arg)
		}
	}
}

func TestPLLCommandOutput(t *testing.T) {
	out, err := runCmd(t, CreatePLLCmd(), "1920x1080@60")
	if err != nil {
		t.Fatalf("pll failed: %v", err)
	}
	for _, want := range []string{"mode:", "pixel clock: 148.500MHz", "pcr:", "tx pll:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestProbeReportsInput(t *testing.T) {
	fake := lt9211ctest.New()
	fake.SetBytes(0x81, 0x00, 0x21, 0x03, 0xe1)
	fake.SetBytes(0xd0, 0x82, 0x16, 0x80, 0x0a, 0x04, 0x38)
	fake.SetBytes(0x86, 0x43, 0x06, 0x5b, 0x9b)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := probe(cmd, lt9211c.New(fake, discardLogger()), 4, true); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	for _, want := range []string{"chip id:  21 03 e1", "1920x1080", "rate:     60 Hz", "timing:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}

func TestProbeNoVideo(t *testing.T) {
	fake := lt9211ctest.New()

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := probe(cmd, lt9211c.New(fake, discardLogger()), 4, true); err != nil {
		t.Fatalf("No video must not fail the probe: %v", err)
	}
	if !strings.Contains(out.String(), "no video") {
		t.Errorf("Expected no video report, got:\n%s", out.String())
	}
}

func TestProbeTransportError(t *testing.T) {
	fake := lt9211ctest.New()
	fake.FailAfter(0)

	cmd := &cobra.Command{}
	if err := probe(cmd, lt9211c.New(fake, discardLogger()), 4, true); err == nil {
		t.Error("Expected chip id read to fail")
	}
}
