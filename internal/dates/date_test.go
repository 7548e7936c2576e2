package dates

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2021-01-02")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d.Year != 2021 || d.Month != time.January || d.Day != 2 {
		t.Errorf("Parse = %+v, want 2021-01-02", d)
	}
	if d.String() != "2021-01-02" {
		t.Errorf("String = %q, want 2021-01-02", d.String())
	}

	if _, err := Parse("02/01/2021"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestAddNormalizes(t *testing.T) {
	d := MustParse("2020-12-30").Add(3)
	if d != MustParse("2021-01-02") {
		t.Errorf("Add(3) = %s, want 2021-01-02", d)
	}
	if back := d.Add(-3); back != MustParse("2020-12-30") {
		t.Errorf("Add(-3) = %s, want 2020-12-30", back)
	}
}

func TestCompare(t *testing.T) {
	a := MustParse("2021-01-01")
	b := MustParse("2021-06-30")
	if !a.Before(b) || b.Before(a) {
		t.Error("Before ordering wrong")
	}
	if !b.After(a) {
		t.Error("After ordering wrong")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Error("Compare ordering wrong")
	}
}

func TestDaysUntil(t *testing.T) {
	from := MustParse("2020-12-30")
	to := MustParse("2021-01-02")
	if got := from.DaysUntil(to); got != 3 {
		t.Errorf("DaysUntil = %d, want 3", got)
	}
	if got := to.DaysUntil(from); got != -3 {
		t.Errorf("reverse DaysUntil = %d, want -3", got)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := MustParse("2024-02-29")
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"2024-02-29"` {
		t.Errorf("Marshal = %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}

func TestZeroAndEpoch(t *testing.T) {
	var zero Date
	if !zero.IsZero() {
		t.Error("zero Date should report IsZero")
	}
	if Epoch().String() != "1900-01-01" {
		t.Errorf("Epoch = %s", Epoch())
	}
	if Today().IsZero() {
		t.Error("Today should not be zero")
	}
}
