package review

import (
	"context"
	"time"

	"projectreview/internal/models"
)

// FollowUp answers question in the context of sess. The question and the
// answer are appended to the history only when the answer succeeds. Callers
// serialize turns on one session.
func (r *Reviewer) FollowUp(ctx context.Context, sess *models.ReviewSession, question string) (string, error) {
	paths, err := r.gateway.SelectRelevantFiles(ctx, sess.Files, question)
	if err != nil {
		return "", err
	}
	files := make([]*models.FileRecord, 0, len(paths))
	for _, p := range paths {
		if f, ok := sess.FileByPath(p); ok {
			files = append(files, f)
		}
	}

	history := make([]*models.ChatMessage, 0, len(sess.History)+2)
	history = append(history, sess.History...)
	history = append(history, &models.ChatMessage{Role: models.RoleUser, Content: question, CreatedAt: time.Now()})

	answer, err := r.gateway.GenerateFollowUpAnswer(ctx, files, history)
	if err != nil {
		return "", err
	}
	sess.History = append(history, &models.ChatMessage{Role: models.RoleAssistant, Content: answer, CreatedAt: time.Now()})
	return answer, nil
}
