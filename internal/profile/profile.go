package profile

import (
	"fmt"
	"strings"
)

// Role is a single prior position held by a candidate.
type Role struct {
	Title            string `json:"title,omitempty" mapstructure:"title"`
	Responsibilities string `json:"responsibilities,omitempty" mapstructure:"responsibilities"`
	DurationMonths   int    `json:"duration_months,omitempty" mapstructure:"duration_months"`
}

// Candidate is the structured record produced by the external extraction
// pipeline. The matching core treats it as read-only.
type Candidate struct {
	ID              string   `json:"id" mapstructure:"id"`
	Name            string   `json:"name,omitempty" mapstructure:"name"`
	Skills          []string `json:"skills,omitempty" mapstructure:"skills"`
	ExperienceYears float64  `json:"experience_years,omitempty" mapstructure:"experience_years"`
	Roles           []Role   `json:"roles,omitempty" mapstructure:"roles"`
	RawText         string   `json:"raw_text,omitempty" mapstructure:"raw_text"`
}

// Job is the structured record for an open position. Read-only for the core.
// RequiredYears of zero means the posting states no experience requirement.
type Job struct {
	ID               string   `json:"id" mapstructure:"id"`
	Title            string   `json:"title,omitempty" mapstructure:"title"`
	Skills           []string `json:"skills,omitempty" mapstructure:"skills"`
	Responsibilities []string `json:"responsibilities,omitempty" mapstructure:"responsibilities"`
	RequiredYears    float64  `json:"required_years,omitempty" mapstructure:"required_years"`
	RawText          string   `json:"raw_text,omitempty" mapstructure:"raw_text"`
}

// NormalizeSkills trims tokens, drops empty ones and removes case-insensitive
// duplicates while preserving the original order and casing of the first
// occurrence.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Normalize applies skill normalization in place and clamps negative
// experience values to zero.
func (c *Candidate) Normalize() {
	c.Skills = NormalizeSkills(c.Skills)
	if c.ExperienceYears < 0 {
		c.ExperienceYears = 0
	}
}

func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("candidate id is required")
	}
	if c.ExperienceYears < 0 {
		return fmt.Errorf("candidate %s: experience must be non-negative", c.ID)
	}
	for _, s := range c.Skills {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("candidate %s: skill tokens must be non-empty", c.ID)
		}
	}
	return nil
}

// ResponsibilityText joins the free-text responsibility blobs of all prior
// roles. Falls back to the raw extracted text when no roles are present.
func (c *Candidate) ResponsibilityText() string {
	parts := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		if t := strings.TrimSpace(r.Responsibilities); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(c.RawText)
	}
	return strings.Join(parts, "\n")
}

// Document is the text representation indexed by the vector tier.
func (c *Candidate) Document() string {
	parts := make([]string, 0, 4)
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	if len(c.Skills) > 0 {
		parts = append(parts, strings.Join(c.Skills, ", "))
	}
	if t := c.ResponsibilityText(); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}

// Normalize applies skill normalization in place and clamps a negative
// requirement to zero, which means "no requirement".
func (j *Job) Normalize() {
	j.Skills = NormalizeSkills(j.Skills)
	if j.RequiredYears < 0 {
		j.RequiredYears = 0
	}
}

func (j *Job) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return fmt.Errorf("job id is required")
	}
	if j.RequiredYears < 0 {
		return fmt.Errorf("job %s: required experience must be non-negative", j.ID)
	}
	for _, s := range j.Skills {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("job %s: skill tokens must be non-empty", j.ID)
		}
	}
	return nil
}

// ResponsibilityText joins the posting's responsibility statements. Falls back
// to the raw extracted text when none were extracted.
func (j *Job) ResponsibilityText() string {
	parts := make([]string, 0, len(j.Responsibilities))
	for _, r := range j.Responsibilities {
		if t := strings.TrimSpace(r); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(j.RawText)
	}
	return strings.Join(parts, "\n")
}

// Document is the text representation indexed by the vector tier.
func (j *Job) Document() string {
	parts := make([]string, 0, 4)
	if j.Title != "" {
		parts = append(parts, j.Title)
	}
	if len(j.Skills) > 0 {
		parts = append(parts, strings.Join(j.Skills, ", "))
	}
	if t := j.ResponsibilityText(); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n")
}
