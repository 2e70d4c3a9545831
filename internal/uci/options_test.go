package uci

import "testing"

func TestSpinOptionSetClampsToRange(t *testing.T) {
	var v = 10
	var o = NewSpinOption("Hash", &v, 1, 100, nil)
	if err := o.Set("500"); err != nil {
		t.Fatal(err)
	}
	if v != 100 {
		t.Errorf("value = %d, want clamped to max 100", v)
	}
	if err := o.Set("-5"); err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("value = %d, want clamped to min 1", v)
	}
}

func TestSpinOptionSetInvokesCallbackWithClampedValue(t *testing.T) {
	var v = 10
	var seen = -1
	var o = NewSpinOption("Threads", &v, 1, 16, func(n int) { seen = n })
	if err := o.Set("64"); err != nil {
		t.Fatal(err)
	}
	if seen != 16 {
		t.Errorf("callback saw %d, want clamped value 16", seen)
	}
}

func TestSpinOptionSetRejectsNonInteger(t *testing.T) {
	var v = 10
	var o = NewSpinOption("Hash", &v, 1, 100, nil)
	if err := o.Set("banana"); err == nil {
		t.Error("expected an error setting a non-integer spin value")
	}
	if v != 10 {
		t.Errorf("value should be unchanged after a rejected Set, got %d", v)
	}
}

func TestCheckOptionSetParsesBoolAndInvokesCallback(t *testing.T) {
	var v = false
	var seen = false
	var called = false
	var o = NewCheckOption("UCI_Chess960", &v, func(b bool) { seen = b; called = true })
	if err := o.Set("true"); err != nil {
		t.Fatal(err)
	}
	if !v || !seen || !called {
		t.Errorf("Set(true) did not update value/callback: v=%v seen=%v called=%v", v, seen, called)
	}
}

func TestCheckOptionSetRejectsNonBool(t *testing.T) {
	var v = false
	var o = NewCheckOption("UCI_Chess960", &v, nil)
	if err := o.Set("sideways"); err == nil {
		t.Error("expected an error setting a non-boolean check value")
	}
}

func TestSpinOptionUciStringIncludesBounds(t *testing.T) {
	var v = 64
	var o = NewSpinOption("Hash", &v, 1, 65536, nil)
	var want = "option name Hash type spin default 64 min 1 max 65536"
	if got := o.UciString(); got != want {
		t.Errorf("UciString() = %q, want %q", got, want)
	}
}

func TestCheckOptionUciStringIncludesDefault(t *testing.T) {
	var v = true
	var o = NewCheckOption("UCI_Chess960", &v, nil)
	var want = "option name UCI_Chess960 type check default true"
	if got := o.UciString(); got != want {
		t.Errorf("UciString() = %q, want %q", got, want)
	}
}
