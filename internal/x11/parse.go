package x11

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/skontar/presentation-switch/internal/state"
)

const fullscreenMarker = "_NET_WM_STATE_FULLSCREEN"

var (
	wmClassLine  = regexp.MustCompile(`WM_CLASS\(STRING\) = (.*)`)
	quotedToken  = regexp.MustCompile(`"(.*?)"`)
	topHeaderRow = regexp.MustCompile(`PID\s+USER\s+PR\s+NI`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// parseWindowList parses `wmctrl -l -p` output. Each row carries the window
// id, desktop id, owning PID, client host, and the title; the title keeps its
// internal whitespace.
func parseWindowList(out string) []state.WindowInfo {
	var windows []state.WindowInfo
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitFields(line, 5)
		if len(fields) < 4 {
			continue
		}
		info := state.WindowInfo{
			ID:        fields[0],
			DesktopID: fields[1],
			PID:       fields[2],
			Client:    fields[3],
		}
		if len(fields) == 5 {
			info.Title = fields[4]
		}
		windows = append(windows, info)
	}
	return windows
}

// splitFields splits on runs of whitespace, keeping at most n fields with the
// remainder of the line intact in the last one.
func splitFields(line string, n int) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	parts := whitespace.Split(trimmed, n)
	return parts
}

// parseWindowProps extracts the fullscreen flag and WM class list from raw
// xprop output. The class list preserves the order of the quoted tokens.
func parseWindowProps(out string) state.WindowProps {
	props := state.WindowProps{
		Fullscreen: strings.Contains(out, fullscreenMarker),
	}
	if m := wmClassLine.FindStringSubmatch(out); m != nil {
		for _, token := range quotedToken.FindAllStringSubmatch(m[1], -1) {
			props.WMClasses = append(props.WMClasses, token[1])
		}
	}
	return props
}

// parseProcessTable parses `top -b -n 2` output, keeping only the rows after
// the second header line so the CPU column is an instantaneous sample. Rows
// are indexed by PID; CPU is at the ninth column and the command name at the
// twelfth, matching procps batch output.
func parseProcessTable(out string) map[string]state.Process {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	var rows []string
	firstFound := false
	for i, line := range lines {
		if !topHeaderRow.MatchString(line) {
			continue
		}
		if firstFound {
			rows = lines[i+1:]
			break
		}
		firstFound = true
	}
	procs := make(map[string]state.Process, len(rows))
	for _, row := range rows {
		fields := whitespace.Split(strings.TrimSpace(row), -1)
		if len(fields) < 12 {
			continue
		}
		proc := state.Process{Name: fields[11]}
		if cpu, err := parseCPU(fields[8]); err == nil {
			proc.CPU = &cpu
		}
		procs[fields[0]] = proc
	}
	return procs
}

// parseCPU parses a top CPU column value, tolerating locales that print a
// decimal comma.
func parseCPU(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
