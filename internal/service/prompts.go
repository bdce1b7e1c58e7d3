package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docrankhq/docrank/internal/ai"
	"github.com/docrankhq/docrank/internal/model"
)

const assessmentOpening = "Based on the retrieved content, here is my assessment of this document."

func buildAssessmentMessages(query string, file *model.ExtendedFileForSearch) []ai.Message {
	system := fmt.Sprintf(`You are a document relevance analyst.
Assess how well the provided document excerpts answer the user's question.
Structure your markdown response exactly as follows:
- Begin with the exact phrase: "%s"
- "### Overview": two or three sentences describing what the document covers.
- "### Relevance": how the excerpts relate to the question, including limits of what they answer.
- "### Evidence": the supporting quotes, wrapped in a collapsible block:
  <details><summary>Supporting evidence</summary>

  quoted excerpts here

  </details>
- Use the same language as the question.
- Only use facts present in the excerpts. Do not invent content.`, assessmentOpening)

	var sb strings.Builder
	fmt.Fprintf(&sb, "QUESTION:\n%s\n\nDOCUMENT: %s\n\nEXCERPTS:\n", query, file.Name)
	for i, chunk := range file.Chunks {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, strings.TrimSpace(chunk.Content))
	}
	return []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: sb.String()},
	}
}

func buildJudgePrompt(question string, chunks []model.RankedChunk) string {
	var sb strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, strings.TrimSpace(chunk.Content))
	}
	return fmt.Sprintf(`You are a strict document judge.
Answer the yes/no question below using ONLY the document excerpts.
- Return a JSON object only: {"score": true|false, "explanation": "one sentence"}.
- "score" is true only if the excerpts clearly support a yes answer.
- No extra text, no markdown fences.

QUESTION:
%s

EXCERPTS:
%s`, question, sb.String())
}

// parseJudgeVerdict tolerates the usual model formatting noise: code fences,
// text around the JSON object, and score delivered as a bool, a "yes"/"true"
// string or a number.
func parseJudgeVerdict(output string) (model.JudgeVerdict, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	var raw struct {
		Score       interface{} `json:"score"`
		Explanation string      `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return model.JudgeVerdict{}, fmt.Errorf("parse judge verdict: %w", err)
	}
	verdict := model.JudgeVerdict{Explanation: strings.TrimSpace(raw.Explanation)}
	switch v := raw.Score.(type) {
	case bool:
		verdict.Score = v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		verdict.Score = s == "true" || s == "yes"
	case float64:
		verdict.Score = v != 0
	default:
		return model.JudgeVerdict{}, fmt.Errorf("judge verdict missing score field")
	}
	return verdict, nil
}
