package chat

import "github.com/harunnryd/genkai/gemini"

// Generation is one normalized candidate completion.
type Generation struct {
	Text string
}

// Usage reports the token accounting for an exchange, when the provider
// included it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the normalized result of a generation call. Generations is
// empty, never nil-dereferencing, when the provider returned no candidates
// (a blocked prompt still carries its PromptFeedback).
type Response struct {
	Generations    []Generation
	Usage          *Usage
	PromptFeedback *gemini.PromptFeedback
}

// Text returns the first generation's text, or "" when there is none.
func (r *Response) Text() string {
	if r == nil || len(r.Generations) == 0 {
		return ""
	}
	return r.Generations[0].Text
}

// normalize maps a raw provider response onto the chat surface: one
// generation per candidate, text parts concatenated in order, non-text
// parts skipped.
func normalize(resp *gemini.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}

	out.Generations = make([]Generation, 0, len(resp.Candidates))
	for _, cand := range resp.Candidates {
		var text string
		for _, part := range cand.Content.Parts {
			if tp, ok := part.(gemini.TextPart); ok {
				text += tp.Text
			}
		}
		out.Generations = append(out.Generations, Generation{Text: text})
	}

	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	out.PromptFeedback = resp.PromptFeedback

	return out
}
