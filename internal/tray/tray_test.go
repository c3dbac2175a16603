package tray

import "testing"

func TestTray_State(t *testing.T) {
	tr := New(true)

	if !tr.Mirror() {
		t.Error("Mirror() = false, want initial true")
	}
	if tr.Status() != "Starting" {
		t.Errorf("Status() = %q, want Starting", tr.Status())
	}

	// Updates before the menu exists are kept for onReady
	tr.SetMirror(false)
	tr.SetStatus("Waiting for two hands")

	if tr.Mirror() {
		t.Error("Mirror() = true after SetMirror(false)")
	}
	if tr.Status() != "Waiting for two hands" {
		t.Errorf("Status() = %q", tr.Status())
	}
}

func TestTray_SelectMirror(t *testing.T) {
	tr := New(false)

	var got []bool
	tr.OnMirror(func(on bool) { got = append(got, on) })

	tr.selectMirror(true)
	tr.selectMirror(false)

	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("callback values = %v, want [true false]", got)
	}
	if tr.Mirror() {
		t.Error("Mirror() should follow the last selection")
	}
}

func TestTray_HandleOpen(t *testing.T) {
	tr := New(true)

	// No callback registered is not an error
	tr.handleOpen()

	opened := 0
	tr.OnOpen(func() { opened++ })
	tr.handleOpen()

	if opened != 1 {
		t.Errorf("open callback ran %d times, want 1", opened)
	}
}

func TestStatusTitle(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"", "Status: idle"},
		{"Mirror mode on", "Status: Mirror mode on"},
	}
	for _, tt := range tests {
		if got := statusTitle(tt.status); got != tt.want {
			t.Errorf("statusTitle(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
