package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "FeedbackGoodLength")
	if got != "Good answer length." {
		t.Errorf("T(FeedbackGoodLength) = %q, want 'Good answer length.'", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "FeedbackGoodLength")
	if got != "Хорошая длина ответа." {
		t.Errorf("T(FeedbackGoodLength) = %q, want 'Хорошая длина ответа.'", got)
	}
}

func TestDefaultsToEnglishWithoutLocalizer(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := T(context.Background(), "StrengthGeneric")
	if got != "Shows understanding of the topic" {
		t.Errorf("T(StrengthGeneric) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Tp(ctx, "NarrativeHighScoring", 3, map[string]any{"Total": 5})
	if got != "You performed well on 3 out of 5 questions." {
		t.Errorf("Tp(NarrativeHighScoring, 3) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "FollowUpElaborate", map[string]any{"Question": "What is REST?"})
	want := "Could you elaborate more on your answer to: 'What is REST?'?"
	if got != want {
		t.Errorf("Td(FollowUpElaborate) = %q, want %q", got, want)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareHonorsAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "FeedbackGoodLength")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "Хорошая длина ответа." {
		t.Errorf("localized via header = %q", got)
	}
}
