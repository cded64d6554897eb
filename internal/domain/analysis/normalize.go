package analysis

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultSourceTitle is used for web citations that carry no title.
const DefaultSourceTitle = "Search Result"

// payload mirrors the response schema. It is untrusted until validated.
type payload struct {
	RiskScore string   `json:"risk_score" validate:"required"`
	ScamType  string   `json:"scam_type" validate:"required"`
	RedFlags  []string `json:"red_flags"`
	Advice    string   `json:"advice" validate:"required"`
}

// Normalizer turns a RawResponse into a Result.
//
// In lenient mode undecodable output degrades to an empty object and the
// schema check is skipped, so a broken response yields a mostly empty Low
// verdict. In strict mode both cases return a *ParseError.
type Normalizer struct {
	Lenient  bool
	validate *validator.Validate
}

func NewNormalizer(lenient bool) *Normalizer {
	return &Normalizer{Lenient: lenient, validate: validator.New()}
}

func (n *Normalizer) Normalize(raw RawResponse) (*Result, error) {
	var p payload
	text := strings.TrimSpace(raw.Text)
	if text == "" {
		text = "{}"
	}
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		if !n.Lenient {
			return nil, &ParseError{Raw: raw.Text, Err: err}
		}
		p = payload{}
	} else if !n.Lenient {
		if err := n.validator().Struct(p); err != nil {
			return nil, &ParseError{Raw: raw.Text, Err: err}
		}
	}

	res := &Result{
		RiskScore: NormalizeRiskScore(p.RiskScore),
		ScamType:  p.ScamType,
		RedFlags:  p.RedFlags,
		Advice:    p.Advice,
	}
	if res.RedFlags == nil {
		res.RedFlags = []string{}
	}
	if sources := ExtractSources(raw.Chunks); len(sources) > 0 {
		res.Sources = sources
	}
	return res, nil
}

var defaultValidate = validator.New()

func (n *Normalizer) validator() *validator.Validate {
	if n.validate == nil {
		return defaultValidate
	}
	return n.validate
}

// ExtractSources keeps chunks with a web citation and deduplicates them by
// URI. Order is first-seen; a repeated URI overwrites the earlier entry's
// title in place.
func ExtractSources(chunks []GroundingChunk) []GroundingSource {
	var out []GroundingSource
	index := make(map[string]int)
	for _, c := range chunks {
		if c.Web == nil {
			continue
		}
		title := c.Web.Title
		if title == "" {
			title = DefaultSourceTitle
		}
		s := GroundingSource{Title: title, URI: c.Web.URI}
		if i, ok := index[s.URI]; ok {
			out[i] = s
			continue
		}
		index[s.URI] = len(out)
		out = append(out, s)
	}
	return out
}
