// -----------------------------------------------------------------------
// Prompt Assembler - mode-specific templates over retrieved context,
// plus the deterministic fallback used when generation fails
// -----------------------------------------------------------------------

package prompts

import (
	"fmt"
	"strings"

	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
)

// Response modes
const (
	ModeConcise     = "concise"
	ModeDescriptive = "descriptive"
	ModeAdvice      = "advice"
)

// NoResultsMessage is returned unchanged whenever retrieval produced
// zero rows. No generation call is made in that case.
const NoResultsMessage = "No relevant perfumes found for your query."

const conciseSystem = `You are a perfume expert. Create a concise top 3 list matching the query, selecting the most relevant from the provided context.

FORMAT (exactly):
**Perfume Name** (` + "★" + `8.5) Notes: brief notes | Review: short review

RULES:
- Limit to maximum 3 perfumes, ranked by relevance to query.
- One line per perfume.
- Brief and focused (10-20 words per section).
- Use star rating format (` + "★" + `X.X) from context ratings.
- Base only on provided context; do not add extra text, introductions, or conclusions.
- Match to query specifics like notes, gender, or occasions.`

const descriptiveSystem = `You are an expert fragrance critic. Create a comprehensive analysis of the top 3 perfumes matching the query, selecting and ranking the best from the provided context.

FORMAT (follow exactly):
**1. Perfume Name** (Rating: 8.5/10, Fragrance Type: Type)
*Notes:* Detailed fragrance composition with top, middle, base notes
*Review:* Comprehensive review describing the scent journey and personality match
*Perfect for:* Specific occasions, seasons, and target audience
*Performance:* Longevity, projection, and sillage details
*Similar to:* Comparable fragrances and alternatives

RULES:
- Limit to exactly 3 perfumes, ranked by relevance/rating from context.
- Number each as 1., 2., 3.
- Include ALL sections for each perfume.
- Rich, detailed descriptions (50-80 words per section).
- If fewer strict matches exist than requested, fill with closest matches labeled "[Closest match]" and say why in one clause.
- Match fragrances to personality types and query specifics.
- Base only on provided context; infer missing details logically, prefixed with "Inferred:", but do not hallucinate.
- No additional text outside the format.`

const adviceSystem = `You are an expert perfume consultant answering an educational question, not a product search. Provide helpful, practical advice.

Guidelines:
- Give clear, actionable tips
- Use simple, friendly language
- Keep response 150-250 words
- Include 3-5 specific points
- Be professional but conversational
- If about layering: explain base notes first, complementary scents, application order
- If about storage: mention temperature, light, humidity
- If about application: pulse points, distance, amount`

// BuildPerfume assembles the prompt and sampling options for a perfume
// recommendation query in the given mode.
func BuildPerfume(query string, rows []models.RetrievedPerfume, mode string) (*interfaces.GenerateRequest, error) {
	var context strings.Builder
	fmt.Fprintf(&context, "User Query: %s\n\nRelevant Perfumes:\n", query)
	for _, r := range rows {
		details := r.Row.CombinedText
		if len(details) > 200 {
			details = details[:200] + "..."
		}
		fmt.Fprintf(&context, "- %s (Rating: %.1f/10): %s\n", r.Row.Title, r.Row.Rating, details)
	}

	switch mode {
	case ModeConcise:
		return &interfaces.GenerateRequest{
			System: conciseSystem,
			Prompt: context.String() + "\nResponse:",
			Options: interfaces.GenerateOptions{
				Temperature: 0.5,
				TopP:        0.9,
				NumPredict:  150,
			},
		}, nil
	case ModeDescriptive, "":
		return &interfaces.GenerateRequest{
			System: descriptiveSystem,
			Prompt: context.String() + "\nProvide detailed analysis:",
			Options: interfaces.GenerateOptions{
				Temperature: 0.7,
				TopP:        0.9,
				NumPredict:  1200,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown response mode %q", mode)
	}
}

// BuildAdvice assembles the prompt for an educational question
func BuildAdvice(query string) *interfaces.GenerateRequest {
	return &interfaces.GenerateRequest{
		System: adviceSystem,
		Prompt: fmt.Sprintf("A customer asked: %q\n\nProvide a helpful response:", query),
		Options: interfaces.GenerateOptions{
			Temperature: 0.7,
			TopP:        0.9,
			NumPredict:  400,
		},
	}
}

// BuildPaperQA assembles the prompt for a question against retrieved
// paper chunks. Callers pass chunks already deduplicated by document;
// each chunk is truncated so the context stays inside a small window.
func BuildPaperQA(question string, chunks []models.RetrievedChunk) *interfaces.GenerateRequest {
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		text := chunk.Text
		if len(text) > 800 {
			text = text[:800]
		}
		title := chunk.Meta.Title
		if len(title) > 60 {
			title = title[:60]
		}
		parts = append(parts, fmt.Sprintf("[%s (%d)]\n%s", title, chunk.Meta.Year, text))
	}

	prompt := fmt.Sprintf(`Based on the research papers below, answer the question concisely and accurately.

Research Context:
%s

Question: %s

Answer (be specific and cite paper titles):`, strings.Join(parts, "\n\n---\n\n"), question)

	return &interfaces.GenerateRequest{
		Prompt: prompt,
		Options: interfaces.GenerateOptions{
			Temperature: 0.2,
			TopP:        0.9,
			NumPredict:  300,
			Stop:        []string{"\n\nQuestion:", "Question:"},
		},
	}
}

// BuildSummary assembles the prompt summarizing one paper's text
func BuildSummary(text string) *interfaces.GenerateRequest {
	if len(text) > 2000 {
		text = text[:2000]
	}
	return &interfaces.GenerateRequest{
		Prompt: fmt.Sprintf("Summarize this research paper in 200 words: %s", text),
		Options: interfaces.GenerateOptions{
			Temperature: 0.3,
			TopP:        0.9,
			NumPredict:  300,
		},
	}
}

// Fallback builds the deterministic templated answer from retrieved
// rows without any network call. Always non-empty when rows is
// non-empty: every retrieved title appears in the output.
func Fallback(rows []models.RetrievedPerfume, mode string) string {
	if len(rows) == 0 {
		return NoResultsMessage
	}

	var b strings.Builder
	b.WriteString("Here are the top perfumes I found:\n\n")
	for _, r := range rows {
		if mode == ModeConcise {
			notes := r.Row.CombinedText
			if len(notes) > 50 {
				notes = notes[:50] + "..."
			}
			fmt.Fprintf(&b, "**%s** (★%.1f) Notes: %s\n", r.Row.Title, r.Row.Rating, notes)
		} else {
			desc := r.Row.CombinedText
			if len(desc) > 300 {
				desc = desc[:300] + "..."
			}
			fmt.Fprintf(&b, "**%s** (Rating: %.1f/10)\nDescription: %s\n\n", r.Row.Title, r.Row.Rating, desc)
		}
	}
	return b.String()
}

// advice detection keywords, checked as substrings of the lowered query
var adviceKeywords = []string{
	"how to", "how do", "what is", "why ", "when ", "tips", "advice",
	"layer", "store", "storage", "apply", "application", "last longer",
	"make it last", "difference between",
}

// IsAdviceQuestion reports whether a query asks for guidance rather
// than a product search.
func IsAdviceQuestion(query string) bool {
	lowered := strings.ToLower(query)
	for _, keyword := range adviceKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
