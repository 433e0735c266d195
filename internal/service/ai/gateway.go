package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"projectreview/internal/models"
)

// MaxRelevantFiles caps the files attached to a follow-up answer.
const MaxRelevantFiles = 2

// Gateway is the single entry point for model calls made while reviewing a project.
type Gateway struct {
	model model.BaseChatModel
}

func NewGateway(m model.BaseChatModel) *Gateway {
	return &Gateway{model: m}
}

func (g *Gateway) invoke(ctx context.Context, op string, tpl prompt.ChatTemplate, vars map[string]any) (string, error) {
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", &ModelInvocationError{Op: op, Err: fmt.Errorf("format prompt: %w", err)}
	}
	logPromptSize(op, msgs)
	resp, err := g.model.Generate(ctx, msgs)
	if err != nil {
		return "", &ModelInvocationError{Op: op, Err: err}
	}
	if resp == nil {
		return "", &ModelInvocationError{Op: op, Err: errors.New("empty response")}
	}
	return strings.TrimSpace(resp.Content), nil
}

func (g *Gateway) ExtractDescription(ctx context.Context, taskText string) (string, error) {
	return g.invoke(ctx, opExtractDescription, describeTemplate, map[string]any{
		"task_description": taskText,
	})
}

// RestructureRequirements never fails on a malformed reply; it yields an empty list instead.
func (g *Gateway) RestructureRequirements(ctx context.Context, requirementsText string) (models.Requirements, error) {
	out, err := g.invoke(ctx, opRestructureRequirements, restructureTemplate, map[string]any{
		"requirements": requirementsText,
	})
	if err != nil {
		return nil, err
	}
	items, err := parseStringArray(out)
	if err != nil {
		log.Printf("restructure requirements: malformed model output: %v", err)
		return models.Requirements{}, nil
	}
	reqs := make(models.Requirements, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			reqs = append(reqs, it)
		}
	}
	return reqs, nil
}

func (g *Gateway) SummarizeFile(ctx context.Context, path, content, description string) (string, error) {
	return g.invoke(ctx, opSummarizeFile, summarizeTemplate, map[string]any{
		"project_description": description,
		"file_path":           path,
		"file_content":        content,
	})
}

func (g *Gateway) ScoreFileQuality(ctx context.Context, path, summary, content string, reqs models.Requirements) (string, error) {
	return g.invoke(ctx, opScoreFileQuality, scoreTemplate, map[string]any{
		"structured_requirements": renderRequirements(reqs),
		"file_path":               path,
		"file_summary":            summary,
		"file_content":            content,
	})
}

func (g *Gateway) SynthesizeFinalReview(ctx context.Context, feedback models.FileFeedback, reqs models.Requirements, description string) (string, error) {
	return g.invoke(ctx, opSynthesizeFinalReview, synthesizeTemplate, map[string]any{
		"project_description": description,
		"requirements":        renderRequirements(reqs),
		"file_feedbacks":      renderFeedback(feedback),
	})
}

// SelectRelevantFiles returns at most MaxRelevantFiles paths, all of them known.
func (g *Gateway) SelectRelevantFiles(ctx context.Context, files []*models.FileRecord, question string) ([]string, error) {
	out, err := g.invoke(ctx, opSelectRelevantFiles, selectTemplate, map[string]any{
		"file_summaries": renderSummaries(files),
		"question":       question,
	})
	if err != nil {
		return nil, err
	}
	known := models.Summaries(files)
	seen := make(map[string]bool)
	var selected []string
	for _, p := range parsePaths(out) {
		if _, ok := known[p]; !ok || seen[p] {
			continue
		}
		seen[p] = true
		selected = append(selected, p)
		if len(selected) == MaxRelevantFiles {
			break
		}
	}
	if len(selected) == 0 && out != "" && out != `""` {
		debugLog("select relevant files: no known path in %q", out)
	}
	return selected, nil
}

// GenerateFollowUpAnswer answers the last user turn of history using the given files.
func (g *Gateway) GenerateFollowUpAnswer(ctx context.Context, files []*models.FileRecord, history []*models.ChatMessage) (string, error) {
	return g.invoke(ctx, opGenerateFollowUpAnswer, answerTemplate, map[string]any{
		"relevant_files": renderFiles(files),
		"history":        convertMessages(history),
	})
}

func convertMessages(history []*models.ChatMessage) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		if msg == nil {
			continue
		}
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: msg.Content})
	}
	return messages
}

func renderRequirements(reqs models.Requirements) string {
	if reqs == nil {
		reqs = models.Requirements{}
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return strings.Join(reqs, "\n")
	}
	return string(data)
}

func renderFeedback(feedback models.FileFeedback) string {
	var b strings.Builder
	for _, entry := range feedback {
		fmt.Fprintf(&b, "### %s\n%s\n\n", entry.Path, entry.Feedback)
	}
	return strings.TrimSpace(b.String())
}

type fileSummary struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

func renderSummaries(files []*models.FileRecord) string {
	list := make([]fileSummary, 0, len(files))
	for _, f := range files {
		list = append(list, fileSummary{Path: f.Path, Summary: f.Summary})
	}
	data, _ := json.MarshalIndent(list, "", "  ")
	return string(data)
}

func renderFiles(files []*models.FileRecord) string {
	if len(files) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, f.Path+":\n"+f.Content)
	}
	return strings.Join(parts, "\n\n")
}
