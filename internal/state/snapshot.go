package state

import (
	"context"
)

// Window describes one observed top-level window, assembled from the window
// list, its X properties, and the process table.
type Window struct {
	ID        string
	DesktopID string
	PID       string
	Client    string
	Title     string
	// CPU is the owning process utilization percentage at sample time; nil
	// when the process table had no row for the window's PID.
	CPU        *float64
	Fullscreen bool
	// Name is the owning process executable name, empty on a join miss.
	Name      string
	WMClasses []string
}

// HasClass reports whether the window advertises the given WM class
// (exact, case-sensitive).
func (w Window) HasClass(class string) bool {
	for _, c := range w.WMClasses {
		if c == class {
			return true
		}
	}
	return false
}

// WindowInfo is one row of the window list query.
type WindowInfo struct {
	ID        string
	DesktopID string
	PID       string
	Client    string
	Title     string
}

// WindowProps holds the per-window property query results.
type WindowProps struct {
	Fullscreen bool
	WMClasses  []string
}

// Process is one row of the process table query. CPU is nil when the table
// value did not parse as a number.
type Process struct {
	CPU  *float64
	Name string
}

// DataSource abstracts the queries required to build a snapshot.
type DataSource interface {
	ListWindows(ctx context.Context) ([]WindowInfo, error)
	WindowProperties(ctx context.Context, windowID string) (WindowProps, error)
	// Processes returns a settled instantaneous CPU sample indexed by PID.
	Processes(ctx context.Context) (map[string]Process, error)
}

// Snapshot is the joined view of the desktop at one sample instant.
type Snapshot struct {
	Windows []Window
}

// NewSnapshot samples the data source and joins the three queries on window
// id and PID. A join miss leaves the optional fields absent rather than
// failing the snapshot.
func NewSnapshot(ctx context.Context, src DataSource) (*Snapshot, error) {
	infos, err := src.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	props := make(map[string]WindowProps, len(infos))
	for _, info := range infos {
		p, err := src.WindowProperties(ctx, info.ID)
		if err != nil {
			return nil, err
		}
		props[info.ID] = p
	}
	procs, err := src.Processes(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Windows: make([]Window, 0, len(infos))}
	for _, info := range infos {
		w := Window{
			ID:        info.ID,
			DesktopID: info.DesktopID,
			PID:       info.PID,
			Client:    info.Client,
			Title:     info.Title,
		}
		if p, ok := props[info.ID]; ok {
			w.Fullscreen = p.Fullscreen
			w.WMClasses = p.WMClasses
		}
		if proc, ok := procs[info.PID]; ok {
			if proc.CPU != nil {
				cpu := *proc.CPU
				w.CPU = &cpu
			}
			w.Name = proc.Name
		}
		snap.Windows = append(snap.Windows, w)
	}
	return snap, nil
}

// FindWindow returns the window with the given id, or nil.
func (s *Snapshot) FindWindow(id string) *Window {
	for i := range s.Windows {
		if s.Windows[i].ID == id {
			return &s.Windows[i]
		}
	}
	return nil
}

// CloneSnapshot returns a deep copy of the provided snapshot.
func CloneSnapshot(src *Snapshot) *Snapshot {
	if src == nil {
		return nil
	}
	clone := &Snapshot{}
	if len(src.Windows) > 0 {
		clone.Windows = make([]Window, len(src.Windows))
		copy(clone.Windows, src.Windows)
		for i := range clone.Windows {
			w := &clone.Windows[i]
			if w.CPU != nil {
				cpu := *w.CPU
				w.CPU = &cpu
			}
			if len(w.WMClasses) > 0 {
				w.WMClasses = append([]string(nil), w.WMClasses...)
			}
		}
	}
	return clone
}
