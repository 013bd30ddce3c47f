// Package gemini is a low-level client for the Google generative language
// API: the generateContent and streamGenerateContent endpoints, their wire
// records, and nothing above them. Higher layers build requests and drive
// function calling; this package only moves them across the HTTP boundary.
package gemini

import "encoding/json"

// Content roles defined by the wire contract.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// GenerateContentRequest is the request body of both generation endpoints.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	ToolConfig        *ToolConfig       `json:"toolConfig,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// WithContents returns a copy of the request with the conversation replaced
// and every other field carried over unchanged.
func (r GenerateContentRequest) WithContents(contents []Content) GenerateContentRequest {
	r.Contents = contents
	return r
}

// Content is one conversational turn: an optional producer role and an
// ordered sequence of parts.
type Content struct {
	Role  string
	Parts []Part
}

type contentWire struct {
	Role  string `json:"role,omitempty"`
	Parts parts  `json:"parts"`
}

func (c Content) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentWire{Role: c.Role, Parts: parts(c.Parts)})
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var w contentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Role = w.Role
	c.Parts = []Part(w.Parts)
	return nil
}

// Tool is a set of function declarations the model may choose to call.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty"`
}

// FunctionDeclaration describes one callable function: its name (a-z, A-Z,
// 0-9, underscores and dashes, at most 63 characters), a description the
// model sees, and the parameter schema.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// ToolConfig configures tool use for a single request.
type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

// FunctionCallingMode controls whether the model may, must, or must not
// predict a function call.
type FunctionCallingMode string

const (
	ModeUnspecified FunctionCallingMode = "MODE_UNSPECIFIED"
	// ModeAuto lets the model decide between a function call and text.
	ModeAuto FunctionCallingMode = "AUTO"
	// ModeAny constrains the model to always predict a function call,
	// optionally limited to AllowedFunctionNames.
	ModeAny FunctionCallingMode = "ANY"
	// ModeNone forbids function calls entirely.
	ModeNone FunctionCallingMode = "NONE"
)

type FunctionCallingConfig struct {
	Mode                 FunctionCallingMode `json:"mode,omitempty"`
	AllowedFunctionNames []string            `json:"allowedFunctionNames,omitempty"`
}

// HarmCategory and HarmBlockThreshold parameterize a SafetySetting.
type (
	HarmCategory       string
	HarmBlockThreshold string
)

const (
	HarmCategoryHarassment       HarmCategory = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       HarmCategory = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit HarmCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent HarmCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"

	BlockLowAndAbove    HarmBlockThreshold = "BLOCK_LOW_AND_ABOVE"
	BlockMediumAndAbove HarmBlockThreshold = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh       HarmBlockThreshold = "BLOCK_ONLY_HIGH"
	BlockNone           HarmBlockThreshold = "BLOCK_NONE"
)

// SafetySetting adjusts the blocking threshold for one harm category.
type SafetySetting struct {
	Category  HarmCategory       `json:"category"`
	Threshold HarmBlockThreshold `json:"threshold"`
}

// GenerationConfig holds the sampling parameters of a request.
type GenerationConfig struct {
	StopSequences    []string `json:"stopSequences,omitempty"`
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
	CandidateCount   *int     `json:"candidateCount,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	Temperature      *float32 `json:"temperature,omitempty"`
	TopP             *float32 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
}

// GenerateContentResponse is the response body of both generation
// endpoints; for the streaming endpoint each chunk is one such record.
// Either all requested candidates are present or none at all; no candidates
// means the prompt itself was rejected, see PromptFeedback.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// FirstPart returns the first part of the first candidate, or nil when the
// response has no such part.
func (r *GenerateContentResponse) FirstPart() Part {
	if r == nil || len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return nil
	}
	return r.Candidates[0].Content.Parts[0]
}

// FinishReason reports why the model stopped generating tokens.
type FinishReason string

const (
	FinishReasonUnspecified FinishReason = "FINISH_REASON_UNSPECIFIED"
	FinishReasonStop        FinishReason = "STOP"
	FinishReasonMaxTokens   FinishReason = "MAX_TOKENS"
	FinishReasonSafety      FinishReason = "SAFETY"
	FinishReasonRecitation  FinishReason = "RECITATION"
	FinishReasonOther       FinishReason = "OTHER"
)

// Candidate is one alternative generated response.
type Candidate struct {
	Content       Content        `json:"content"`
	FinishReason  FinishReason   `json:"finishReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
	TokenCount    int            `json:"tokenCount,omitempty"`
	Index         int            `json:"index,omitempty"`
}

// BlockReason explains why a prompt produced no candidates.
type BlockReason string

const (
	BlockReasonUnspecified BlockReason = "BLOCK_REASON_UNSPECIFIED"
	BlockReasonSafety      BlockReason = "SAFETY"
	BlockReasonOther       BlockReason = "OTHER"
)

// PromptFeedback carries the content-filter verdict on the prompt itself.
type PromptFeedback struct {
	BlockReason   BlockReason    `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// SafetyRating is the harm classification of a piece of content.
type SafetyRating struct {
	Category    HarmCategory `json:"category"`
	Probability string       `json:"probability,omitempty"`
	Blocked     bool         `json:"blocked,omitempty"`
}

// UsageMetadata reports token usage for one generation request.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}
