package alignment

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/repository"
)

//go:embed prompt/judge.md
var judgePromptRaw string

var judgePromptTmpl = template.Must(template.New("judge").Parse(judgePromptRaw))

// verdictSchema constrains the completion to the five-field verdict object.
var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"aligned": {
			Type:        genai.TypeBoolean,
			Description: "Whether the conversation is consistent with the recorded decisions",
		},
		"issue": {
			Type:        genai.TypeString,
			Nullable:    genai.Ptr(true),
			Description: "One sentence describing the contradiction, null when aligned",
		},
		"relevant_decision": {
			Type:        genai.TypeString,
			Nullable:    genai.Ptr(true),
			Description: "The exact decision text being contradicted, null when aligned",
		},
		"meeting_title": {
			Type:        genai.TypeString,
			Nullable:    genai.Ptr(true),
			Description: "The meeting the decision came from, null when aligned",
		},
		"severity": {
			Type:        genai.TypeString,
			Nullable:    genai.Ptr(true),
			Enum:        []string{"low", "medium", "high"},
			Description: "Contradiction severity, null when aligned",
		},
	},
	Required: []string{"aligned"},
}

// judge asks the completion service for a verdict on the conversation against
// the candidate decisions, then parses the structured response. The returned
// result does not yet carry meeting_date or similarity; those come only from
// retrieval and are overlaid by the caller.
func (u *UseCase) judge(ctx context.Context, conversation string, candidates []*repository.Match) (*model.AlignmentResult, error) {
	var buf bytes.Buffer
	if err := judgePromptTmpl.Execute(&buf, map[string]any{
		"Conversation": conversation,
		"Candidates":   candidates,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute judge prompt template")
	}

	// Temperature 0 so identical input reproduces the same verdict.
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   verdictSchema,
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(model.ErrJudgmentService, "completion call failed", goerr.V("cause", err))
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, goerr.Wrap(model.ErrJudgmentService, "empty response from completion service")
	}

	return parseVerdict(resp.Candidates[0].Content.Parts[0].Text)
}

// parseVerdict validates the raw completion output against the verdict shape.
// Anything malformed is discarded whole; fields are never guessed or
// partially accepted.
func parseVerdict(raw string) (*model.AlignmentResult, error) {
	var verdict struct {
		Aligned          *bool   `json:"aligned"`
		Issue            *string `json:"issue"`
		RelevantDecision *string `json:"relevant_decision"`
		MeetingTitle     *string `json:"meeting_title"`
		Severity         *string `json:"severity"`
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&verdict); err != nil {
		return nil, goerr.Wrap(model.ErrJudgmentParse, "response is not valid JSON",
			goerr.V("raw", raw), goerr.V("cause", err))
	}
	if dec.More() {
		return nil, goerr.Wrap(model.ErrJudgmentParse, "trailing data after verdict object", goerr.V("raw", raw))
	}
	if verdict.Aligned == nil {
		return nil, goerr.Wrap(model.ErrJudgmentParse, "verdict is missing aligned field", goerr.V("raw", raw))
	}

	result := &model.AlignmentResult{
		Aligned:          *verdict.Aligned,
		Issue:            verdict.Issue,
		RelevantDecision: verdict.RelevantDecision,
		MeetingTitle:     verdict.MeetingTitle,
	}
	if verdict.Severity != nil {
		sev := model.Severity(*verdict.Severity)
		if err := sev.Validate(); err != nil {
			return nil, goerr.Wrap(model.ErrJudgmentParse, "invalid severity in verdict",
				goerr.V("raw", raw), goerr.V("severity", *verdict.Severity))
		}
		result.Severity = &sev
	}

	if err := result.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrJudgmentParse, "verdict violates the result schema",
			goerr.V("raw", raw), goerr.V("cause", err))
	}

	return result, nil
}
