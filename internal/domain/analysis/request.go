package analysis

// Schema is a provider-neutral description of the structured output the
// model must return. Providers translate it into their own schema types.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Schema types
const (
	TypeObject = "object"
	TypeString = "string"
	TypeArray  = "array"
)

// InlineImage is binary image data attached to a request.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Part is one piece of request content: text or an inline image.
type Part struct {
	Text  string
	Image *InlineImage
}

// Request is everything a provider needs for one generate call.
type Request struct {
	Mode              InputMode
	SystemInstruction string
	Parts             []Part
	Schema            *Schema
	// WebSearch enables the provider's search tool. Only set for link mode.
	WebSearch bool
}

// WebChunk is a web citation from the response grounding metadata.
type WebChunk struct {
	Title string
	URI   string
}

// GroundingChunk is one entry of the response grounding metadata. Only
// entries with Web set are used as sources.
type GroundingChunk struct {
	Web *WebChunk
}

// RawResponse is the untrusted model output before normalization.
type RawResponse struct {
	Text   string
	Chunks []GroundingChunk
}
