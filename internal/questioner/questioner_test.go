package questioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoriesOf(questions []Question) []string {
	cats := make([]string, len(questions))
	for i, q := range questions {
		cats[i] = q.Category
	}
	return cats
}

func TestSelectEmptyBriefPrioritizesBudget(t *testing.T) {
	s := NewService()

	questions := s.SelectNextQuestions(Brief{}, nil, 5)

	require.Len(t, questions, 5)
	// No budget info in the brief pushes the budget question to the top;
	// ties keep bank order.
	assert.Equal(t, CategoryBudget, questions[0].Category)
	assert.Equal(t, CategoryTimeline, questions[1].Category)
	assert.Equal(t, "Quels sont vos critères de sélection prioritaires ?", questions[2].Text)
	assert.Equal(t, CategoryTechConstraint, questions[3].Category)
	assert.Equal(t, "Avez-vous des références visuelles ou exemples inspirants ?", questions[4].Text)
}

func TestSelectSkipsBudgetWhenBriefMentionsIt(t *testing.T) {
	s := NewService()

	questions := s.SelectNextQuestions(Brief{
		Description: "Site vitrine, budget de 2000€ environ",
	}, nil, 5)

	require.Len(t, questions, 5)
	assert.NotContains(t, categoriesOf(questions), CategoryBudget)
	assert.Equal(t, CategoryTimeline, questions[0].Category)
}

func TestSelectNeverRepeatsAnsweredCategories(t *testing.T) {
	s := NewService()
	answers := map[string]string{CategoryBudget: "1500-5000€"}

	for i := 0; i < 3; i++ {
		questions := s.SelectNextQuestions(Brief{}, answers, 5)
		assert.NotContains(t, categoriesOf(questions), CategoryBudget)
	}
}

func TestSelectHighBudgetAnswerBoostsQualityQuestions(t *testing.T) {
	s := NewService()

	questions := s.SelectNextQuestions(Brief{}, map[string]string{
		CategoryBudget: "> 15000€",
	}, 5)

	require.Len(t, questions, 5)
	// Selection criteria question reaches 1.0 with the synergy bonus.
	assert.Equal(t, "Quels sont vos critères de sélection prioritaires ?", questions[0].Text)
	assert.Equal(t, CategoryQuality, questions[0].Category)
}

func TestSelectUrgentTimelineAnswerDemotesTechQuestions(t *testing.T) {
	s := NewService()

	questions := s.SelectNextQuestions(Brief{}, map[string]string{
		CategoryTimeline: "Urgent (< 1 semaine)",
	}, 5)

	require.Len(t, questions, 5)
	cats := categoriesOf(questions)
	assert.Equal(t, []string{
		CategoryBudget,
		CategoryQuality,
		CategoryQuality,
		CategoryTechConstraint,
		CategoryQuality,
	}, cats)
	// Tech slid behind the visual-references question it normally outranks.
	assert.Equal(t, "Avez-vous des références visuelles ou exemples inspirants ?", questions[2].Text)
}

func TestSelectComplexProjectBoostsTechQuestion(t *testing.T) {
	s := NewService()

	questions := s.SelectNextQuestions(Brief{EstimatedComplexity: 8}, nil, 3)

	require.Len(t, questions, 3)
	assert.Equal(t, CategoryBudget, questions[0].Category)
	assert.Equal(t, CategoryTechConstraint, questions[1].Category)
}

func TestSelectUrgentDescriptionBoostsTimeline(t *testing.T) {
	s := NewService()

	// Mentioning the budget drops that question; urgency lifts timeline to
	// the top.
	questions := s.SelectNextQuestions(Brief{
		Description: "Refonte urgente, budget défini",
	}, nil, 5)

	require.NotEmpty(t, questions)
	assert.Equal(t, CategoryTimeline, questions[0].Category)
}

func TestSelectRespectsMaxQuestions(t *testing.T) {
	s := NewService()

	assert.Len(t, s.SelectNextQuestions(Brief{}, nil, 2), 2)
	assert.Len(t, s.SelectNextQuestions(Brief{}, nil, 100), 8)
	// Non-positive max falls back to the default of 5.
	assert.Len(t, s.SelectNextQuestions(Brief{}, nil, 0), 5)
}

func TestSelectIsDeterministic(t *testing.T) {
	s := NewService()
	brief := Brief{Description: "Application mobile premium", EstimatedComplexity: 6}
	answers := map[string]string{CategoryContext: "Moi-même"}

	first := s.SelectNextQuestions(brief, answers, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.SelectNextQuestions(brief, answers, 5))
	}
}

func TestContextualVoIClamped(t *testing.T) {
	s := NewService()
	bank := questionBank()

	// Base 0.9 + 0.3 missing-budget bonus clamps to 1.0.
	assert.Equal(t, 1.0, s.contextualVoI(bank[0], Brief{}, nil))
}

func TestEstimateCompletionGain(t *testing.T) {
	s := NewService()

	t.Run("full round saturates", func(t *testing.T) {
		questions := s.SelectNextQuestions(Brief{}, nil, 5)
		gain := s.EstimateCompletionGain(questions)

		assert.Equal(t, 60, gain.CurrentScore)
		assert.Equal(t, 100, gain.PotentialScore)
		assert.Equal(t, 150, gain.TimeToComplete)
		assert.Equal(t, []string{
			"clarification of budget",
			"clarification of timeline",
			"clarification of quality",
		}, gain.KeyImprovements)
	})

	t.Run("single low-value question", func(t *testing.T) {
		gain := s.EstimateCompletionGain([]Question{{BaseVoI: 0.5, Category: CategoryContext}})

		assert.Equal(t, 80, gain.PotentialScore)
		assert.Empty(t, gain.KeyImprovements)
		assert.Equal(t, 30, gain.TimeToComplete)
	})

	t.Run("no questions", func(t *testing.T) {
		gain := s.EstimateCompletionGain(nil)

		assert.Equal(t, 60, gain.PotentialScore)
		assert.Equal(t, 0, gain.TimeToComplete)
	})
}

func TestSelectWrapsQuestionsAndGain(t *testing.T) {
	s := NewService()

	sel := s.Select(Brief{}, nil, 3)

	assert.Len(t, sel.Questions, 3)
	assert.Equal(t, 3, sel.TotalQuestions)
	assert.Equal(t, 90, sel.CompletionGain.TimeToComplete)
}
