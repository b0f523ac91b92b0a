package textutil

import "testing"

func TestNormalizeForMatch(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc", "abc"},
		{"aBc", "abc"},
		{"ab'c", "abc"},
		{"a-b-c", "abc"},
		{"ab c", "ab c"},
		{"Wi-Fi", "wifi"},
		{"don't", "dont"},
		{"", ""},
		{"---", ""},
	}
	for _, c := range cases {
		if got := NormalizeForMatch(c.in); got != c.want {
			t.Errorf("NormalizeForMatch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEqualIgnoringMatchChars(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"abc", "aBc", true},
		{"abc", "ab'c", true},
		{"abc", "ab c", false},
		{"wifi", "Wi-Fi", true},
	}
	for _, c := range cases {
		if got := EqualIgnoringMatchChars(c.a, c.b); got != c.want {
			t.Errorf("EqualIgnoringMatchChars(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCommonPrefixLen(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"abcd", "abef", 2},
		{"abc", "abc", 3},
		{"abc", "xyz", 0},
		{"", "abc", 0},
		{"ab", "abcd", 2},
	}
	for _, c := range cases {
		if got := CommonPrefixLen([]rune(c.a), []rune(c.b)); got != c.want {
			t.Errorf("CommonPrefixLen(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestContainsDigits(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"abc", false},
		{"abc3", true},
		{"2042", true},
		{"第3章", true},
		{"", false},
	}
	for _, c := range cases {
		if got := ContainsDigits(c.in); got != c.want {
			t.Errorf("ContainsDigits(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsValidWordLength(t *testing.T) {
	if IsValidWordLength(nil) {
		t.Error("empty word reported valid")
	}
	long := make([]rune, MaxWordLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if IsValidWordLength(long) {
		t.Error("49 code point word reported valid")
	}
	if !IsValidWordLength(long[:MaxWordLength]) {
		t.Error("48 code point word reported invalid")
	}
}
