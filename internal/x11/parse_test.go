package x11

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/skontar/presentation-switch/internal/state"
)

const wmctrlFixture = `0x01e00003 -1 2043 myhost xfce4-panel
0x03000003  0 2115 myhost Mozilla Firefox - Private Browsing
0x03800004  1 2200 myhost mpv - movie.mkv
0x04000001  0 2300 myhost
`

func TestParseWindowList(t *testing.T) {
	got := parseWindowList(wmctrlFixture)
	want := []state.WindowInfo{
		{ID: "0x01e00003", DesktopID: "-1", PID: "2043", Client: "myhost", Title: "xfce4-panel"},
		{ID: "0x03000003", DesktopID: "0", PID: "2115", Client: "myhost", Title: "Mozilla Firefox - Private Browsing"},
		{ID: "0x03800004", DesktopID: "1", PID: "2200", Client: "myhost", Title: "mpv - movie.mkv"},
		{ID: "0x04000001", DesktopID: "0", PID: "2300", Client: "myhost"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("window list mismatch (-want +got):\n%s", diff)
	}
}

func TestParseWindowListSkipsBlankAndShortLines(t *testing.T) {
	got := parseWindowList("\n   \n0x1 0\n")
	if len(got) != 0 {
		t.Fatalf("expected no windows, got %+v", got)
	}
}

const xpropFullscreenFixture = `_NET_WM_STATE(ATOM) = _NET_WM_STATE_FULLSCREEN
WM_CLASS(STRING) = "Navigator", "Firefox"
WM_NAME(STRING) = "Mozilla Firefox"
`

const xpropPlainFixture = `_NET_WM_STATE(ATOM) = _NET_WM_STATE_MAXIMIZED_VERT
WM_NAME(STRING) = "Terminal"
`

func TestParseWindowProps(t *testing.T) {
	props := parseWindowProps(xpropFullscreenFixture)
	if !props.Fullscreen {
		t.Fatalf("expected fullscreen flag")
	}
	if diff := cmp.Diff([]string{"Navigator", "Firefox"}, props.WMClasses); diff != "" {
		t.Fatalf("class list mismatch (-want +got):\n%s", diff)
	}

	props = parseWindowProps(xpropPlainFixture)
	if props.Fullscreen {
		t.Fatalf("maximized window must not count as fullscreen")
	}
	if len(props.WMClasses) != 0 {
		t.Fatalf("expected empty class list when marker is absent, got %v", props.WMClasses)
	}
}

const topFixture = `top - 12:00:00 up  1:00,  2 users,  load average: 0.52, 0.58, 0.59
Tasks: 200 total,   1 running, 199 sleeping,   0 stopped,   0 zombie
%Cpu(s):  5.0 us,  1.7 sy,  0.0 ni, 93.0 id,  0.2 wa,  0.0 hi,  0.1 si,  0.0 st
KiB Mem :  8066432 total,  1421152 free,  3858776 used,  2786504 buff/cache
KiB Swap:  2097148 total,  2097148 free,        0 used.  3640704 avail Mem

  PID USER      PR  NI    VIRT    RES    SHR S  %CPU %MEM     TIME+ COMMAND
 2115 user      20   0 2659856 523412 154756 S  99.9  6.5  30:15.21 firefox
 2200 user      20   0  845120 101234  60012 S  50.0  1.2   0:05.11 mpv
top - 12:00:03 up  1:00,  2 users,  load average: 0.52, 0.58, 0.59
Tasks: 200 total,   1 running, 199 sleeping,   0 stopped,   0 zombie
%Cpu(s):  5.0 us,  1.7 sy,  0.0 ni, 93.0 id,  0.2 wa,  0.0 hi,  0.1 si,  0.0 st
KiB Mem :  8066432 total,  1421152 free,  3858776 used,  2786504 buff/cache
KiB Swap:  2097148 total,  2097148 free,        0 used.  3640704 avail Mem

  PID USER      PR  NI    VIRT    RES    SHR S  %CPU %MEM     TIME+ COMMAND
 2115 user      20   0 2659856 523412 154756 S  17.5  6.5  30:15.43 firefox
 2200 user      20   0  845120 101234  60012 S   3,0  1.2   0:05.43 mpv
 2300 user      20   0  102400   8120   6021 S   bad  0.1   0:00.01 ghost
`

func TestParseProcessTableUsesSecondSample(t *testing.T) {
	procs := parseProcessTable(topFixture)
	firefox, ok := procs["2115"]
	if !ok {
		t.Fatalf("missing pid 2115: %+v", procs)
	}
	if firefox.CPU == nil || *firefox.CPU != 17.5 {
		t.Fatalf("expected second-sample CPU 17.5, got %+v", firefox.CPU)
	}
	if firefox.Name != "firefox" {
		t.Fatalf("unexpected name %q", firefox.Name)
	}
	mpv := procs["2200"]
	if mpv.CPU == nil || *mpv.CPU != 3.0 {
		t.Fatalf("expected comma decimal to parse as 3.0, got %+v", mpv.CPU)
	}
}

func TestParseProcessTableToleratesUnparsableCPU(t *testing.T) {
	procs := parseProcessTable(topFixture)
	ghost, ok := procs["2300"]
	if !ok {
		t.Fatalf("expected row with unparsable CPU to be kept: %+v", procs)
	}
	if ghost.CPU != nil {
		t.Fatalf("expected nil CPU, got %v", *ghost.CPU)
	}
	if ghost.Name != "ghost" {
		t.Fatalf("unexpected name %q", ghost.Name)
	}
}

func TestParseProcessTableRequiresSecondHeader(t *testing.T) {
	single := `  PID USER      PR  NI    VIRT    RES    SHR S  %CPU %MEM     TIME+ COMMAND
 2115 user      20   0 2659856 523412 154756 S  99.9  6.5  30:15.21 firefox
`
	if procs := parseProcessTable(single); len(procs) != 0 {
		t.Fatalf("single-iteration output must yield no rows, got %+v", procs)
	}
}
