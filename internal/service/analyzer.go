package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/atinyakov/SkillMap/internal/models"
)

// Analysis is the result of analyzing a résumé against a goal.
type Analysis struct {
	Skills []string
	// Roadmap is newline-delimited, possibly with list markers.
	Roadmap      string
	Courses      []models.Course
	Assessment   string
	SkillGaps    []string
	LearningPath []string
	Tips         []string
}

// Analyzer turns a résumé and a goal into an Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, goal string, resume []byte) (*Analysis, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, goal string, resume []byte) (*Analysis, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, goal string, resume []byte) (*Analysis, error) {
	return f(ctx, goal, resume)
}

// TemplateAnalyzer produces a fixed roadmap shaped around the goal title.
// It does not read the résumé.
type TemplateAnalyzer struct{}

// Analyze implements Analyzer.
func (TemplateAnalyzer) Analyze(_ context.Context, goal string, _ []byte) (*Analysis, error) {
	goal = strings.TrimSpace(goal)
	return &Analysis{
		Skills: []string{"Communication", "Problem Solving"},
		Roadmap: strings.Join([]string{
			fmt.Sprintf("1. Research what a %s does day to day", goal),
			"2. Identify the core tools of the role",
			"- Complete one foundational course",
			"- Build a portfolio project",
			"",
			"Apply to three positions",
		}, "\n"),
		Courses: []models.Course{{
			Title:       goal + " Fundamentals",
			Description: "An introductory course covering the essentials.",
			Provider:    "SkillMap",
		}},
		Assessment: fmt.Sprintf("## Overview\nYour CV shows a **solid base** for a move towards %s.", goal),
		SkillGaps:  []string{"Domain-specific tooling"},
		LearningPath: []string{
			"Foundations",
			"Hands-on practice",
		},
		Tips: []string{"Quantify your achievements", "Tailor the summary to the role"},
	}, nil
}
