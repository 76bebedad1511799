package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aawaaz/incident-server/internal/apperr"
	"github.com/aawaaz/incident-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeModel answers with respond and records what it was sent.
type fakeModel struct {
	respond    func(prompt string, attachment *InlineData) (string, error)
	prompt     string
	attachment *InlineData
}

func (m *fakeModel) GenerateText(ctx context.Context, prompt string, attachment *InlineData) (string, error) {
	m.prompt = prompt
	m.attachment = attachment
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.respond(prompt, attachment)
}

func newTestService(m Model) *Service {
	return NewService(m, 0, zap.NewNop().Sugar())
}

func TestGenerate_TheftScenario(t *testing.T) {
	m := &fakeModel{respond: func(string, *InlineData) (string, error) {
		return "```json\n{\n  \"title\": \"Bag stolen near the market\",\n  \"category\": \"Public Safety\",\n  \"location\": \"Market St\",\n  \"content\": \"A bag was stolen near the market at 6pm.\"\n}\n```", nil
	}}
	svc := newTestService(m)

	post, err := svc.Generate(context.Background(), models.RawReport{
		Title:       "Theft",
		Description: "My bag was stolen near the market at 6pm",
		Category:    "Public Safety",
		Location:    "Market St",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, post.Title)
	assert.Equal(t, "Public Safety", post.Category)
	assert.Equal(t, "Market St", post.Location)
	assert.NotEmpty(t, post.Content)

	for _, want := range []string{"Theft", "My bag was stolen near the market at 6pm", "Market St", `"title"`, `"category"`, `"location"`, `"content"`} {
		assert.Contains(t, m.prompt, want)
	}
	assert.Nil(t, m.attachment)
}

func TestGenerate_Failures(t *testing.T) {
	cases := map[string]func(string, *InlineData) (string, error){
		"transport":      func(string, *InlineData) (string, error) { return "", errors.New("connection reset") },
		"unparsable":     func(string, *InlineData) (string, error) { return "Here is your post!", nil },
		"missing fields": func(string, *InlineData) (string, error) { return `{"title":"Theft"}`, nil },
	}
	for name, respond := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(&fakeModel{respond: respond})
			post, err := svc.Generate(context.Background(), models.RawReport{Title: "x", Description: "y"})
			assert.Nil(t, post)
			assert.ErrorIs(t, err, apperr.ErrGeneration)
		})
	}
}

func TestGenerate_TimeoutIsGenerationFailure(t *testing.T) {
	m := &fakeModel{respond: func(string, *InlineData) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "", context.DeadlineExceeded
	}}
	svc := NewService(m, time.Millisecond, zap.NewNop().Sugar())

	_, err := svc.Generate(context.Background(), models.RawReport{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrGeneration)
}

func TestAssessRelevance_Scenarios(t *testing.T) {
	m := &fakeModel{respond: func(prompt string, _ *InlineData) (string, error) {
		if strings.Contains(prompt, "bribe") {
			return `{"isRelevant": "yes"}`, nil
		}
		return "```json\n{\"isRelevant\": \"no\"}\n```", nil
	}}
	svc := newTestService(m)

	got, err := svc.AssessRelevance(context.Background(), "I saw a bribe being offered at the permit office")
	require.NoError(t, err)
	assert.True(t, got.IsRelevant)

	got, err = svc.AssessRelevance(context.Background(), "What's a good recipe for pancakes?")
	require.NoError(t, err)
	assert.False(t, got.IsRelevant)
}

func TestAssessRelevance_NeverDefaults(t *testing.T) {
	for name, respond := range map[string]func(string, *InlineData) (string, error){
		"transport":  func(string, *InlineData) (string, error) { return "", errors.New("503") },
		"unparsable": func(string, *InlineData) (string, error) { return "no", nil },
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(&fakeModel{respond: respond})
			got, err := svc.AssessRelevance(context.Background(), "anything")
			assert.Nil(t, got)
			assert.ErrorIs(t, err, apperr.ErrClassification)
		})
	}
}

func TestTranscribe(t *testing.T) {
	m := &fakeModel{respond: func(string, *InlineData) (string, error) {
		return `{"title":"Harassment at work","category":"Workplace Issues","location":"Unspecified","content":"A manager shouted at staff."}`, nil
	}}
	svc := newTestService(m)

	audio := []byte{0x49, 0x44, 0x33, 0x04}
	post, err := svc.Transcribe(context.Background(), audio, "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "Workplace Issues", post.Category)

	require.NotNil(t, m.attachment)
	assert.Equal(t, "audio/mpeg", m.attachment.MimeType)
	assert.Equal(t, audio, m.attachment.Data)
	assert.Contains(t, m.prompt, "Transcribe")
}

func TestTranscribe_Failures(t *testing.T) {
	svc := newTestService(&fakeModel{respond: func(string, *InlineData) (string, error) {
		return "The speaker says their bag was stolen.", nil
	}})

	_, err := svc.Transcribe(context.Background(), []byte("audio"), "audio/wav")
	assert.ErrorIs(t, err, apperr.ErrTranscription)

	_, err = svc.Transcribe(context.Background(), nil, "audio/wav")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
