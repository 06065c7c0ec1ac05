package domain

// Image generation tool actions
const (
	ActionAuto = "auto"
	ActionEdit = "edit"
)

// ImageGenerationTool configures the image generation capability of a request
type ImageGenerationTool struct {
	Action        string
	InputFidelity string
}

// ResponseRequest is one call to the generative endpoint
type ResponseRequest struct {
	Model        string
	Prompt       string
	ImageDataURI string            // attached only on a fresh request
	Previous     ContinuationToken // zero on a fresh request
	Tool         ImageGenerationTool
}

// Response is the structured answer of the generative endpoint
type Response struct {
	ID     string
	Output []OutputItem
}

// Token returns the continuation token for chaining off this response
func (r *Response) Token() ContinuationToken {
	return NewContinuationToken(r.ID)
}

// OutputItem is one element of a heterogeneous response output list
type OutputItem interface {
	ItemType() string
}

// Output item type tags
const (
	ItemImageGenerationCall = "image_generation_call"
	ItemMessage             = "message"
)

// ImageGenerationCall carries a generated image
type ImageGenerationCall struct {
	ID     string
	Status string
	Result string // base64 encoded image, empty when the call produced nothing
}

func (ImageGenerationCall) ItemType() string { return ItemImageGenerationCall }

// MessageOutput carries assistant text
type MessageOutput struct {
	Text string
}

func (MessageOutput) ItemType() string { return ItemMessage }

// UnknownOutput is any item kind the pipeline does not inspect
type UnknownOutput struct {
	Type string
}

func (u UnknownOutput) ItemType() string { return u.Type }
