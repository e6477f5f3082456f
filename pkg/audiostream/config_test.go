// ABOUTME: Tests for engine configuration
// ABOUTME: Covers defaults and policy name parsing
package audiostream

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()

	if c.MaxBufferSeconds != 10 {
		t.Errorf("MaxBufferSeconds = %d", c.MaxBufferSeconds)
	}
	if c.WriteUnitMs != 20 {
		t.Errorf("WriteUnitMs = %d", c.WriteUnitMs)
	}
	if c.WriteTimeout != 2*time.Second || c.SubmitTimeout != time.Second || c.CloseTimeout != 5*time.Second {
		t.Errorf("unexpected timeouts %v %v %v", c.WriteTimeout, c.SubmitTimeout, c.CloseTimeout)
	}
	if c.Overflow != OverflowBlock || c.Close != CloseDrain {
		t.Errorf("unexpected policies %v %v", c.Overflow, c.Close)
	}

	custom := Config{WriteUnitMs: 5, SubmitRetryInterval: time.Millisecond}.withDefaults()
	if custom.WriteUnitMs != 5 || custom.SubmitRetryInterval != time.Millisecond {
		t.Errorf("explicit values overridden: %+v", custom)
	}
}

func TestParsePolicies(t *testing.T) {
	overflow := []struct {
		in      string
		want    OverflowPolicy
		wantErr bool
	}{
		{"", OverflowBlock, false},
		{"block", OverflowBlock, false},
		{"drop", OverflowDrop, false},
		{"spill", OverflowBlock, true},
	}
	for _, tt := range overflow {
		got, err := ParseOverflowPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOverflowPolicy(%q) = %v, %v", tt.in, got, err)
		}
	}

	closing := []struct {
		in      string
		want    ClosePolicy
		wantErr bool
	}{
		{"", CloseDrain, false},
		{"drain", CloseDrain, false},
		{"discard", CloseDiscard, false},
		{"keep", CloseDrain, true},
	}
	for _, tt := range closing {
		got, err := ParseClosePolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseClosePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
}
