package conv

import "testing"

func TestUtoa(t *testing.T) {
	cases := map[uint64]string{0: "0", 1: "1", 42: "42", 127: "127", 99999: "99999"}
	for n, want := range cases {
		var buf [20]byte
		if got := string(Utoa(buf[:], n)); got != want {
			t.Errorf("Utoa(%d) = %q, want %q", n, got, want)
		}
	}
}
