package gemini

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPart reports a wire part that does not carry exactly one
// content variant.
var ErrMalformedPart = errors.New("malformed part")

// Part is one unit of message content. It is a closed sum over the five
// variants the wire contract allows: text, inline binary data, a function
// call predicted by the model, the result of a function call, and a file
// reference. Exactly one variant is populated, by construction.
type Part interface {
	isPart()
}

// TextPart carries inline text.
type TextPart struct {
	Text string
}

// BlobPart carries inline media bytes. Data is raw; it is base64-encoded
// on the wire.
type BlobPart struct {
	MIMEType string
	Data     []byte
}

// FunctionCallPart is a function call predicted by the model, with the
// declared function name and its arguments as a JSON object.
type FunctionCallPart struct {
	Name string
	Args json.RawMessage
}

// FunctionResponsePart is the result of an executed function call, fed
// back to the model as a JSON object.
type FunctionResponsePart struct {
	Name     string
	Response json.RawMessage
}

// FileDataPart references previously uploaded data by URI.
type FileDataPart struct {
	MIMEType string
	FileURI  string
}

func (TextPart) isPart()             {}
func (BlobPart) isPart()             {}
func (FunctionCallPart) isPart()     {}
func (FunctionResponsePart) isPart() {}
func (FileDataPart) isPart()         {}

type blobWire struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type functionCallWire struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type functionResponseWire struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response,omitempty"`
}

type fileDataWire struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// partWire is the one-of record shape the API speaks.
type partWire struct {
	Text             *string               `json:"text,omitempty"`
	InlineData       *blobWire             `json:"inlineData,omitempty"`
	FunctionCall     *functionCallWire     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponseWire `json:"functionResponse,omitempty"`
	FileData         *fileDataWire         `json:"fileData,omitempty"`
}

func marshalPart(p Part) (partWire, error) {
	switch v := p.(type) {
	case TextPart:
		return partWire{Text: &v.Text}, nil
	case BlobPart:
		return partWire{InlineData: &blobWire{
			MIMEType: v.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(v.Data),
		}}, nil
	case FunctionCallPart:
		return partWire{FunctionCall: &functionCallWire{Name: v.Name, Args: v.Args}}, nil
	case FunctionResponsePart:
		return partWire{FunctionResponse: &functionResponseWire{Name: v.Name, Response: v.Response}}, nil
	case FileDataPart:
		return partWire{FileData: &fileDataWire{MIMEType: v.MIMEType, FileURI: v.FileURI}}, nil
	default:
		return partWire{}, fmt.Errorf("%w: unknown variant %T", ErrMalformedPart, p)
	}
}

func (w partWire) part() (Part, error) {
	var (
		p Part
		n int
	)
	if w.Text != nil {
		p = TextPart{Text: *w.Text}
		n++
	}
	if w.InlineData != nil {
		data, err := base64.StdEncoding.DecodeString(w.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: inline data is not base64: %v", ErrMalformedPart, err)
		}
		p = BlobPart{MIMEType: w.InlineData.MIMEType, Data: data}
		n++
	}
	if w.FunctionCall != nil {
		p = FunctionCallPart{Name: w.FunctionCall.Name, Args: w.FunctionCall.Args}
		n++
	}
	if w.FunctionResponse != nil {
		p = FunctionResponsePart{Name: w.FunctionResponse.Name, Response: w.FunctionResponse.Response}
		n++
	}
	if w.FileData != nil {
		p = FileDataPart{MIMEType: w.FileData.MIMEType, FileURI: w.FileData.FileURI}
		n++
	}
	if n != 1 {
		return nil, fmt.Errorf("%w: %d variants populated", ErrMalformedPart, n)
	}
	return p, nil
}

// parts is the JSON codec for an ordered Part sequence.
type parts []Part

func (ps parts) MarshalJSON() ([]byte, error) {
	wire := make([]partWire, len(ps))
	for i, p := range ps {
		w, err := marshalPart(p)
		if err != nil {
			return nil, err
		}
		wire[i] = w
	}
	return json.Marshal(wire)
}

func (ps *parts) UnmarshalJSON(data []byte) error {
	var wire []partWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make([]Part, len(wire))
	for i, w := range wire {
		p, err := w.part()
		if err != nil {
			return err
		}
		out[i] = p
	}
	*ps = out
	return nil
}
