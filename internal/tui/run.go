package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/hearth/internal/model"
)

// ReviewResult is what the user decided on the review screen.
type ReviewResult struct {
	SkipRowNumbers []int
	Confirmed      bool
}

// RunReview shows the review screen until the user applies or cancels.
func RunReview(ctx context.Context, preview model.ImportPreview, initialSkips []int, in io.Reader, out io.Writer) (ReviewResult, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	final, err := tea.NewProgram(NewReviewModel(preview, initialSkips), opts...).Run()
	if err != nil {
		return ReviewResult{}, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(ReviewModel)
	if !ok {
		return ReviewResult{}, fmt.Errorf("review screen returned unexpected model %T", final)
	}
	return ReviewResult{
		SkipRowNumbers: m.SkipRowNumbers(),
		Confirmed:      m.Confirmed(),
	}, nil
}
