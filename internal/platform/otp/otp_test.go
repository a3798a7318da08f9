package otp

import "testing"

func TestGenerateLengthAndDigits(t *testing.T) {
	for _, n := range []int{6, 4, 8} {
		code, err := Generate(n)
		if err != nil {
			t.Fatalf("Generate(%d): %v", n, err)
		}
		if len(code) != n {
			t.Fatalf("Generate(%d) = %q, want %d digits", n, code, n)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("Generate(%d) = %q, contains non-digit %q", n, code, r)
			}
		}
	}
}

func TestGenerateDefaultsLength(t *testing.T) {
	code, err := Generate(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != DefaultLength {
		t.Fatalf("Generate(0) = %q, want %d digits", code, DefaultLength)
	}
}

func TestGenerateVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := Generate(6)
		if err != nil {
			t.Fatal(err)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("Generate produced the same code 32 times")
	}
}
