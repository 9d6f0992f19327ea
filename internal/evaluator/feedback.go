package evaluator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pavelanni/interviewer/internal/i18n"
	"github.com/pavelanni/interviewer/internal/model"
)

func (e *Evaluator) feedbackText(ctx context.Context, q model.Question, answer string) string {
	if e.feedback != nil {
		// Evaluation runs to completion even if the caller goes away.
		text, err := e.feedback.GenerateFeedback(context.WithoutCancel(ctx), q, answer)
		switch {
		case err != nil:
			slog.Warn("feedback generator failed, using fallback", "error", err)
		case strings.TrimSpace(text) != "":
			return strings.TrimSpace(text)
		}
	}
	return FallbackFeedback(ctx, q, answer)
}

// FallbackFeedback composes feedback from answer length, keyword coverage
// and visible structure. It never fails.
func FallbackFeedback(ctx context.Context, q model.Question, answer string) string {
	var parts []string

	switch wc := len(strings.Fields(answer)); {
	case wc < 20:
		parts = append(parts, i18n.T(ctx, "FeedbackMoreDetail"))
	case wc > 150:
		parts = append(parts, i18n.T(ctx, "FeedbackMoreConcise"))
	default:
		parts = append(parts, i18n.T(ctx, "FeedbackGoodLength"))
	}

	if len(q.Keywords) > 0 {
		lower := strings.ToLower(answer)
		var mentioned []string
		for _, k := range q.Keywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				mentioned = append(mentioned, k)
			}
		}
		if len(mentioned) > 0 {
			parts = append(parts, i18n.Td(ctx, "FeedbackKeywordsMentioned",
				map[string]any{"Keywords": strings.Join(mentioned, ", ")}))
		} else {
			missing := q.Keywords[:min(3, len(q.Keywords))]
			parts = append(parts, i18n.Td(ctx, "FeedbackKeywordsMissing",
				map[string]any{"Keywords": strings.Join(missing, ", ")}))
		}
	}

	if strings.Contains(answer, ". ") || strings.Contains(answer, ":") {
		parts = append(parts, i18n.T(ctx, "FeedbackGoodStructure"))
	} else {
		parts = append(parts, i18n.T(ctx, "FeedbackOrganize"))
	}

	return strings.Join(parts, " ")
}

func strengths(ctx context.Context, semantic, keyword, structure float64) []string {
	var out []string
	if semantic > 0.7 {
		out = append(out, i18n.T(ctx, "StrengthContent"))
	}
	if keyword > 0.7 {
		out = append(out, i18n.T(ctx, "StrengthTerminology"))
	}
	if structure > 0.7 {
		out = append(out, i18n.T(ctx, "StrengthOrganization"))
	}
	if len(out) == 0 {
		out = append(out, i18n.T(ctx, "StrengthGeneric"))
	}
	return out
}

func improvements(ctx context.Context, semantic, keyword, structure float64) []string {
	var out []string
	if semantic < 0.5 {
		out = append(out, i18n.T(ctx, "ImproveDirectness"))
	}
	if keyword < 0.5 {
		out = append(out, i18n.T(ctx, "ImproveTerminology"))
	}
	if structure < 0.5 {
		out = append(out, i18n.T(ctx, "ImproveOrganization"))
	}
	if len(out) == 0 {
		out = append(out, i18n.T(ctx, "ImproveGeneric"))
	}
	return out
}
