package safeguard

import "testing"

func testStrategy(threshold int) ResponseStrategy {
	return ResponseStrategy{
		InitialWarning:    "initial",
		SecondaryResponse: "secondary",
		FinalAction:       "final",
		EscalationPath:    EscalationPath{Threshold: threshold},
	}
}

func TestEscalate_ThresholdThree(t *testing.T) {
	e := NewEscalator(testStrategy(3))

	want := []struct {
		count int
		stage Stage
		msg   string
	}{
		{1, StageFirstWarning, "initial"},
		{2, StageSecondWarning, "secondary"},
		{3, StageTerminated, "final"},
		{4, StageTerminated, "final"},
	}

	count := 0
	for i, w := range want {
		var stage Stage
		var msg string
		count, stage, msg = e.Escalate(count)
		if count != w.count || stage != w.stage || msg != w.msg {
			t.Errorf("step %d: got (%d, %s, %q), want (%d, %s, %q)", i+1, count, stage, msg, w.count, w.stage, w.msg)
		}
	}
}

func TestEscalate_ThresholdTwo(t *testing.T) {
	e := NewEscalator(testStrategy(2))

	count, stage, msg := e.Escalate(0)
	if count != 1 || stage != StageFirstWarning || msg != "initial" {
		t.Errorf("first: got (%d, %s, %q)", count, stage, msg)
	}
	count, stage, msg = e.Escalate(count)
	if count != 2 || stage != StageTerminated || msg != "final" {
		t.Errorf("second: got (%d, %s, %q)", count, stage, msg)
	}
}

func TestEscalate_ThresholdOne(t *testing.T) {
	e := NewEscalator(testStrategy(1))
	_, stage, msg := e.Escalate(0)
	if stage != StageTerminated || msg != "final" {
		t.Errorf("got (%s, %q), want terminated on first violation", stage, msg)
	}
}

func TestNewEscalator_ClampsThreshold(t *testing.T) {
	e := NewEscalator(testStrategy(0))
	if e.Threshold() != 1 {
		t.Errorf("Threshold = %d, want 1", e.Threshold())
	}
}

func TestStageFor(t *testing.T) {
	e := NewEscalator(testStrategy(5))
	tests := map[int]Stage{
		0: StageClean,
		1: StageFirstWarning,
		2: StageSecondWarning,
		4: StageSecondWarning,
		5: StageTerminated,
		9: StageTerminated,
	}
	for count, want := range tests {
		if got := e.StageFor(count); got != want {
			t.Errorf("StageFor(%d) = %s, want %s", count, got, want)
		}
	}
	if msg := e.Message(StageClean); msg != "" {
		t.Errorf("Message(clean) = %q, want empty", msg)
	}
}
