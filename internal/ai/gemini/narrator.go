package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/hireloop/talent-matcher/internal/profile"
	"github.com/hireloop/talent-matcher/internal/ranking"
	"github.com/hireloop/talent-matcher/internal/scoring"
	"github.com/hireloop/talent-matcher/internal/util"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	retryBaseDelay      = 2 * time.Second
)

// Narrator asks Gemini for a short recruiter-facing narrative about a scored
// pair. Transient generation failures are retried with a linear backoff.
type Narrator struct {
	generator  contentGenerator
	logger     *zap.Logger
	maxRetries int
	maxLogLen  int
}

func NewNarrator(generator contentGenerator, logger *zap.Logger, maxRetries, maxLogLength int) *Narrator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Narrator{
		generator:  generator,
		logger:     logger,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
	}
}

func (n *Narrator) Narrate(ctx context.Context, candidate *profile.Candidate, job *profile.Job, result *ranking.Result) (*ranking.Narrative, error) {
	if candidate == nil {
		return nil, fmt.Errorf("candidate is required")
	}
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}
	if result == nil {
		return nil, fmt.Errorf("match result is required")
	}

	candidatePayload := map[string]any{
		"id":               candidate.ID,
		"name":             candidate.Name,
		"skills":           candidate.Skills,
		"experience_years": candidate.ExperienceYears,
		"responsibilities": candidate.ResponsibilityText(),
	}

	jobPayload := map[string]any{
		"id":               job.ID,
		"title":            job.Title,
		"skills":           job.Skills,
		"required_years":   job.RequiredYears,
		"responsibilities": job.Responsibilities,
	}

	scores := result.SubScores()
	matchPayload := map[string]any{
		"score":          result.Score,
		"rationale":      result.Rationale,
		"skill_overlap":  scores.SkillOverlap,
		"responsibility": scores.Responsibility,
		"experience":     scores.Experience,
		"experience_fit": string(result.ExperienceFit),
		"matched_skills": matchedSkills(result),
	}

	candidateJSON, err := json.MarshalIndent(candidatePayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidate payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(jobPayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	matchJSON, err := json.MarshalIndent(matchPayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal match payload: %w", err)
	}

	prompt := buildPrompt(string(candidateJSON), string(jobJSON), string(matchJSON))

	n.logger.Debug("gemini narrate request",
		zap.String("candidate_id", candidate.ID),
		zap.String("job_id", job.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, n.maxLogLen)),
	)

	raw, err := n.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	n.logger.Debug("gemini narrate response",
		zap.String("candidate_id", candidate.ID),
		zap.String("job_id", job.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, n.maxLogLen)),
	)

	narrative, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	narrative.Raw = raw
	return narrative, nil
}

func (n *Narrator) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			n.logger.Debug("retrying gemini request",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := util.WaitFor(ctx, time.Duration(attempt)*retryBaseDelay); err != nil {
				return "", err
			}
		}

		raw, err := n.generator.GenerateContent(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("gemini request failed after %d attempts: %w", n.maxRetries+1, lastErr)
}

func matchedSkills(result *ranking.Result) []string {
	matched := make([]string, 0, len(result.Skills))
	for _, m := range result.Skills {
		if m.Kind != scoring.MatchNone {
			matched = append(matched, m.JobSkill)
		}
	}
	return matched
}

func buildPrompt(candidateJSON, jobJSON, matchJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Candidate:\n{{CANDIDATE_JSON}}\n\nJob:\n{{JOB_JSON}}\n\nMatch:\n{{MATCH_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{CANDIDATE_JSON}}", candidateJSON)
	prompt = strings.ReplaceAll(prompt, "{{JOB_JSON}}", jobJSON)
	prompt = strings.ReplaceAll(prompt, "{{MATCH_JSON}}", matchJSON)
	return prompt
}

func parseResponse(raw string) (*ranking.Narrative, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	summary := coerceString(data["summary"])
	recommendation := coerceString(data["recommendation"])

	if summary == "" {
		return nil, fmt.Errorf("gemini response is missing a summary")
	}

	return &ranking.Narrative{
		Summary:        summary,
		Recommendation: recommendation,
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
