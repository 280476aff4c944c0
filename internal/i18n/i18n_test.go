package i18n

import "testing"

func TestGetEnglishIsIdentity(t *testing.T) {
	t.Parallel()

	key := "Window must be between"
	if got := Get(key, "en"); got != key {
		t.Fatalf("Get(en) = %q, want the key back", got)
	}
}

func TestGetTranslatesKnownKey(t *testing.T) {
	got := Get("Usage", "hi")
	if got == "" || got == "Usage" {
		t.Fatalf("Get(hi) = %q, want a Hindi translation", got)
	}
}

func TestGetUnknownKeyFallsBack(t *testing.T) {
	key := "definitely not a translation key"
	if got := Get(key, "hi"); got != key {
		t.Fatalf("Get(unknown, hi) = %q, want the key back", got)
	}
}

func TestGetLanguagesList(t *testing.T) {
	languages := GetLanguagesList()
	foundEN, foundHI := false, false
	for _, lang := range languages {
		switch lang {
		case "en":
			foundEN = true
		case "hi":
			foundHI = true
		}
	}
	if !foundEN || !foundHI {
		t.Fatalf("languages = %v, want en and hi present", languages)
	}
}
