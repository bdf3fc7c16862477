package classify

import "testing"

func TestNormalize(t *testing.T) {
	in := "line1  \r\nline2\t\r\nline3   "
	want := "line1\nline2\nline3"
	if got := string(Normalize([]byte(in))); got != want {
		t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := []byte("a  \r\nb\t\nc   \r\n")
	once := Normalize(in)
	twice := Normalize(once)
	if string(once) != string(twice) {
		t.Errorf("Normalize not idempotent: once=%q twice=%q", once, twice)
	}
}

func TestHashStable(t *testing.T) {
	a := "line1  \r\nline2\t\r\nline3   "
	b := "line1\nline2\nline3"
	if HashFile([]byte(a)) != HashFile([]byte(b)) {
		t.Errorf("expected equal hashes for cosmetically different inputs")
	}
}

func TestHashTrailingNewline(t *testing.T) {
	t1 := "already ends in newline\n"
	t2 := "already ends in newline\n\n"
	if HashFile([]byte(t1)) == HashFile([]byte(t2)) {
		t.Errorf("expected different hashes: trailing blank line changes content")
	}
	// Hashing a string that already ends with \n and hashing it again
	// unchanged must be stable (idempotence, not "append a newline").
	if HashFile([]byte(t1)) != HashFile([]byte(t1)) {
		t.Errorf("hash must be deterministic")
	}
}
