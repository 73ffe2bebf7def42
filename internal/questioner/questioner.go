// Package questioner selects clarifying questions for an incomplete brief,
// ranked by the expected value of the information each answer would add.
package questioner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/appelspro/brief-engine/internal/scoring"
)

// Question categories. A category is answered at most once; answered
// categories are never asked again.
const (
	CategoryBudget         = "budget"
	CategoryTimeline       = "timeline"
	CategoryQuality        = "quality"
	CategoryTechConstraint = "tech_constraints"
	CategoryContext        = "context"
)

// Question is one candidate from the fixed bank. BaseVoI is the prior value
// of information before any contextual adjustment; Importance is what the
// client UI uses to size the prompt.
type Question struct {
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	Options    []string `json:"options"`
	Importance float64  `json:"importance"`
	BaseVoI    float64  `json:"-"`
	Category   string   `json:"category"`
}

// Brief carries the signals the contextual adjustments read.
type Brief struct {
	Description         string
	EstimatedComplexity float64
}

// CompletionGain is a rough projection of how much the brief-quality score
// would improve if the selected questions were answered. It is a heuristic
// off a fixed baseline, not derived from the LOC model.
type CompletionGain struct {
	CurrentScore    int      `json:"current_score"`
	PotentialScore  int      `json:"potential_score"`
	KeyImprovements []string `json:"key_improvements"`
	TimeToComplete  int      `json:"time_to_complete"`
}

// Selection is the full response for one questioning round.
type Selection struct {
	Questions      []Question     `json:"questions"`
	CompletionGain CompletionGain `json:"completion_gain"`
	TotalQuestions int            `json:"total_questions"`
}

const (
	defaultMaxQuestions = 5
	baselineScore       = 60
	secondsPerQuestion  = 30
)

var (
	budgetKeywords  = []string{"€", "budget", "prix", "coût", "tarif"}
	qualityKeywords = []string{"qualité", "haut de gamme", "premium"}
)

// Service ranks questions from an immutable bank. Stateless between calls
// and safe for concurrent use.
type Service struct {
	bank []Question
}

// NewService builds the service with the standard question bank.
func NewService() *Service {
	return &Service{bank: questionBank()}
}

// questionBank returns the fixed candidate set. Options stay in French, the
// marketplace's client-facing language.
func questionBank() []Question {
	return []Question{
		{
			Text:       "Quel est votre budget approximatif ?",
			Type:       "range",
			Options:    []string{"< 500€", "500-1500€", "1500-5000€", "5000-15000€", "> 15000€"},
			Importance: 0.9,
			BaseVoI:    0.9,
			Category:   CategoryBudget,
		},
		{
			Text:       "Dans quels délais souhaitez-vous livraison ?",
			Type:       "choice",
			Options:    []string{"Urgent (< 1 semaine)", "Rapide (1-2 semaines)", "Standard (1 mois)", "Flexible (> 1 mois)"},
			Importance: 0.8,
			BaseVoI:    0.8,
			Category:   CategoryTimeline,
		},
		{
			Text:       "Avez-vous des références visuelles ou exemples inspirants ?",
			Type:       "text",
			Importance: 0.7,
			BaseVoI:    0.6,
			Category:   CategoryQuality,
		},
		{
			Text:       "Ce projet a-t-il des contraintes techniques spécifiques ?",
			Type:       "text",
			Importance: 0.6,
			BaseVoI:    0.7,
			Category:   CategoryTechConstraint,
		},
		{
			Text:       "Qui sera votre interlocuteur principal ?",
			Type:       "choice",
			Options:    []string{"Moi-même", "Mon équipe", "Prestataire externe", "À définir"},
			Importance: 0.5,
			BaseVoI:    0.4,
			Category:   CategoryContext,
		},
		{
			Text:       "Quels sont vos critères de sélection prioritaires ?",
			Type:       "choice",
			Options:    []string{"Prix le plus bas", "Qualité maximale", "Délai le plus court", "Équilibre prix/qualité"},
			Importance: 0.8,
			BaseVoI:    0.8,
			Category:   CategoryQuality,
		},
		{
			Text:       "Avez-vous déjà travaillé sur un projet similaire ?",
			Type:       "choice",
			Options:    []string{"Oui, plusieurs fois", "Oui, une fois", "Non, c'est ma première fois"},
			Importance: 0.4,
			BaseVoI:    0.5,
			Category:   CategoryContext,
		},
		{
			Text:       "Souhaitez-vous un suivi/maintenance post-projet ?",
			Type:       "choice",
			Options:    []string{"Oui, indispensable", "Oui, si possible", "Non, livraison uniquement"},
			Importance: 0.6,
			BaseVoI:    0.6,
			Category:   CategoryQuality,
		},
	}
}

// SelectNextQuestions ranks every unanswered bank question by contextual
// VoI and returns the top maxQuestions. The sort is stable, so ties keep
// bank order and the selection is fully deterministic.
func (s *Service) SelectNextQuestions(brief Brief, answers map[string]string, maxQuestions int) []Question {
	if maxQuestions <= 0 {
		maxQuestions = defaultMaxQuestions
	}

	type scored struct {
		q   Question
		voi float64
	}

	candidates := make([]scored, 0, len(s.bank))
	for _, q := range s.bank {
		if _, answered := answers[q.Category]; answered {
			continue
		}
		candidates = append(candidates, scored{q: q, voi: s.contextualVoI(q, brief, answers)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].voi > candidates[j].voi
	})

	if len(candidates) > maxQuestions {
		candidates = candidates[:maxQuestions]
	}

	selected := make([]Question, len(candidates))
	for i, c := range candidates {
		selected[i] = c.q
	}
	return selected
}

// contextualVoI adjusts the base VoI with brief signals and cross-question
// synergy, clamped to [0, 1].
func (s *Service) contextualVoI(q Question, brief Brief, answers map[string]string) float64 {
	desc := strings.ToLower(brief.Description)

	var adjustment float64
	switch q.Category {
	case CategoryBudget:
		if containsAny(desc, budgetKeywords) {
			adjustment -= 0.5 // budget already discussed in the brief
		} else {
			adjustment += 0.3
		}
	case CategoryTimeline:
		if strings.Contains(desc, "urgent") {
			adjustment += 0.2
		}
	case CategoryTechConstraint:
		if brief.EstimatedComplexity > 7 {
			adjustment += 0.3
		}
	case CategoryQuality:
		if containsAny(desc, qualityKeywords) {
			adjustment += 0.2
		}
	}

	return scoring.Clamp01(q.BaseVoI + adjustment + synergy(q, answers))
}

// synergy captures interactions with answers already collected: a high
// budget answer makes quality questions more valuable, an urgent timeline
// answer makes technical deep-dives less so.
func synergy(q Question, answers map[string]string) float64 {
	var s float64
	if budget, ok := answers[CategoryBudget]; ok && q.Category == CategoryQuality {
		if strings.Contains(budget, "15000€") {
			s += 0.2
		}
	}
	if timeline, ok := answers[CategoryTimeline]; ok && q.Category == CategoryTechConstraint {
		if strings.Contains(timeline, "Urgent") {
			s -= 0.1
		}
	}
	return s
}

// EstimateCompletionGain projects the brief-quality gain from answering the
// given questions, off an assumed baseline of 60/100.
func (s *Service) EstimateCompletionGain(questions []Question) CompletionGain {
	var totalVoI float64
	improvements := make([]string, 0, len(questions))
	for _, q := range questions {
		totalVoI += q.BaseVoI
		if q.BaseVoI > 0.7 {
			improvements = append(improvements, fmt.Sprintf("clarification of %s", q.Category))
		}
	}

	potential := baselineScore + int(totalVoI*40)
	if potential > 100 {
		potential = 100
	}

	return CompletionGain{
		CurrentScore:    baselineScore,
		PotentialScore:  potential,
		KeyImprovements: improvements,
		TimeToComplete:  len(questions) * secondsPerQuestion,
	}
}

// Select runs one full questioning round.
func (s *Service) Select(brief Brief, answers map[string]string, maxQuestions int) Selection {
	questions := s.SelectNextQuestions(brief, answers, maxQuestions)
	return Selection{
		Questions:      questions,
		CompletionGain: s.EstimateCompletionGain(questions),
		TotalQuestions: len(questions),
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
