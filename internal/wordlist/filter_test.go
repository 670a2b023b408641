package wordlist

import "testing"

func TestFilterEnglish(t *testing.T) {
	filter := FilterForLang("en")
	for _, word := range []string{"hello", "Paris", "don't", "co-op"} {
		if !filter(word) {
			t.Fatalf("expected %q to pass english filter", word)
		}
	}
	for _, word := range []string{"", "résumé", "naïve", "don’t", "-op", "it'", "b4"} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterOtherLanguages(t *testing.T) {
	filter := FilterForLang("fr")
	if !filter("résumé") {
		t.Fatalf("expected accented word to pass")
	}
	if filter("") {
		t.Fatalf("expected empty word to be rejected")
	}
}
