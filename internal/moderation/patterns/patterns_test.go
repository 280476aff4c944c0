package patterns

import (
	"testing"
)

func TestVulgarMatches(t *testing.T) {
	t.Parallel()

	library := Get()

	tests := []struct {
		name      string
		text      string
		wantMatch bool
	}{
		{name: "plain profanity", text: "fuck you", wantMatch: true},
		{name: "obfuscated profanity", text: "you f**k", wantMatch: true},
		{name: "channel attack phrase", text: "this is a fake channel", wantMatch: true},
		{name: "clean text", text: "when is the next mock test", wantMatch: false},
		{name: "substring must not fire", text: "chutney recipe", wantMatch: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := library.VulgarMatches(tt.text)
			if (len(got) > 0) != tt.wantMatch {
				t.Fatalf("VulgarMatches(%q) = %v, want match %v", tt.text, got, tt.wantMatch)
			}
		})
	}
}

func TestCompetitorMatches(t *testing.T) {
	t.Parallel()

	library := Get()

	tests := []struct {
		name      string
		text      string
		wantMatch bool
	}{
		{name: "brand name", text: "allen is better", wantMatch: true},
		{name: "misspelled brand", text: "join aakash today", wantMatch: true},
		{name: "generic word", text: "which coaching do you attend", wantMatch: true},
		{name: "clean text", text: "my score improved a lot", wantMatch: false},
		{name: "brand inside word", text: "fallen leaves", wantMatch: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := library.CompetitorMatches(tt.text)
			if (len(got) > 0) != tt.wantMatch {
				t.Fatalf("CompetitorMatches(%q) = %v, want match %v", tt.text, got, tt.wantMatch)
			}
		})
	}
}

func TestHasSpamIndicators(t *testing.T) {
	t.Parallel()

	library := Get()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "contact number", text: "call : +911234567890 for admission", want: true},
		{name: "dm solicitation", text: "dm me for details", want: true},
		{name: "arbitrary url", text: "check https://example.com/offer", want: true},
		{name: "allowed prep url", text: "see https://www.neetprep.com/questions", want: false},
		{name: "allowed board url", text: "syllabus at https://cbse.gov.in", want: false},
		{name: "plain text", text: "anyone solved question 12", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := library.HasSpamIndicators(tt.text); got != tt.want {
				t.Fatalf("HasSpamIndicators(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestHasCommercialSpam(t *testing.T) {
	t.Parallel()

	library := Get()

	if !library.HasCommercialSpam("buy now, only ₹ 499") {
		t.Fatal("price tag with buy call should be commercial spam")
	}
	if !library.HasCommercialSpam("dm for course access") {
		t.Fatal("dm-for-course should be commercial spam")
	}
	if library.HasCommercialSpam("the course covers organic chemistry") {
		t.Fatal("mentioning a course is not commercial spam")
	}
}

func TestHasEducationalCaption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "exam keyword", text: "mock test from yesterday", want: true},
		{name: "subject keyword", text: "Chemistry numerical", want: true},
		{name: "conversational study words do not count", text: "help with my doubt", want: false},
		{name: "solve alone does not count", text: "solve this", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasEducationalCaption(tt.text); got != tt.want {
				t.Fatalf("HasEducationalCaption(%q) = %v, want %v", tt.text, got, tt.want)
			}
			// Everything the caption list accepts, the text list accepts too.
			if tt.want && !HasEducationalContext(tt.text) {
				t.Fatalf("caption keyword %q missing from the text list", tt.text)
			}
		})
	}
}

func TestHasEducationalContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "question phrasing", text: "can someone solve this doubt", want: true},
		{name: "subject mention", text: "Physics numericals are hard", want: true},
		{name: "substring keyword", text: "I love maths", want: true},
		{name: "off topic", text: "good morning everyone", want: false},
		{name: "empty", text: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasEducationalContext(tt.text); got != tt.want {
				t.Fatalf("HasEducationalContext(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
