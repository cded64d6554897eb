package prompt

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bryanwahyu/scamguard/internal/domain/analysis"
)

// LegacyImageMIME is sent when the data URI does not declare an image type.
const LegacyImageMIME = "image/jpeg"

// Build turns user input for a mode into a provider-neutral request.
func Build(input string, mode analysis.InputMode) (analysis.Request, error) {
	req := analysis.Request{
		Mode:              mode,
		SystemInstruction: SystemInstruction,
		Schema:            ResponseSchema(),
	}

	switch mode {
	case analysis.ModeText:
		req.Parts = []analysis.Part{{Text: TextPrompt(input)}}
	case analysis.ModeLink:
		req.Parts = []analysis.Part{{Text: LinkPrompt(input)}}
		req.WebSearch = true
	case analysis.ModeImage:
		img, err := ParseDataURI(input)
		if err != nil {
			return analysis.Request{}, err
		}
		req.Parts = []analysis.Part{
			{Image: &img},
			{Text: ImageInstruction},
		}
	default:
		return analysis.Request{}, fmt.Errorf("%w: %q", analysis.ErrUnknownMode, mode)
	}
	return req, nil
}

// ParseDataURI splits data:<mime>;base64,<payload> at the first comma and
// decodes the payload. The declared MIME is kept when it is an image type.
func ParseDataURI(uri string) (analysis.InlineImage, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || payload == "" {
		return analysis.InlineImage{}, analysis.ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return analysis.InlineImage{}, fmt.Errorf("%w: %v", analysis.ErrInvalidImage, err)
	}
	return analysis.InlineImage{MIMEType: mimeFromHeader(header), Data: data}, nil
}

// DataURI encodes an image back into data URI form.
func DataURI(img analysis.InlineImage) string {
	mime := img.MIMEType
	if mime == "" {
		mime = LegacyImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func mimeFromHeader(header string) string {
	h := strings.TrimPrefix(header, "data:")
	mime, _, _ := strings.Cut(h, ";")
	mime = strings.ToLower(strings.TrimSpace(mime))
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return LegacyImageMIME
}
