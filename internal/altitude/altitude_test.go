package altitude

import "testing"

func TestRoundTrip(t *testing.T) {
	const refPa = 101325.0
	for alt := 0.0; alt <= 10000; alt += 250 {
		p := PressureForAltitude(alt, refPa)
		got := Meters(p, refPa)
		if diff := got - alt; diff > 0.05 || diff < -0.05 {
			t.Errorf("altitude %v: round-trip got %v (diff %v)", alt, got, diff)
		}
	}
}

func TestNonPositiveInputs(t *testing.T) {
	cases := []struct{ p, ref float64 }{
		{0, 101325},
		{101325, 0},
		{-1, 101325},
		{101325, -1},
	}
	for _, c := range cases {
		if got := Meters(c.p, c.ref); got != 0 {
			t.Errorf("Meters(%v, %v) = %v, want 0", c.p, c.ref, got)
		}
	}
}
