package server

import (
	"fmt"
	"math"
	"strings"

	"edulycee-client/internal/model"
)

func sentences(content string) []string {
	var out []string
	for _, s := range strings.Split(content, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{strings.TrimSpace(content)}
	}
	return out
}

var distractors = map[model.Difficulty][]string{
	model.DifficultyEasy:   {"Aucune des réponses", "Toujours faux", "On ne peut pas savoir"},
	model.DifficultyMedium: {"L'inverse de l'énoncé", "Seulement dans un cas particulier", "Une confusion fréquente"},
	model.DifficultyHard:   {"Une généralisation abusive", "Une réciproque fausse", "Un cas limite mal interprété"},
}

// generateQuestions builds count questions from the document's sentences. The
// correct option rotates so answer keys are not all identical.
func generateQuestions(doc model.Document, content string, count int, difficulty model.Difficulty, ids []int64) []model.MCQQuestion {
	facts := sentences(content)
	wrong := distractors[difficulty]
	if wrong == nil {
		wrong = distractors[model.DifficultyMedium]
	}

	questions := make([]model.MCQQuestion, 0, count)
	for i := 0; i < count; i++ {
		fact := facts[i%len(facts)]
		correct := i % 4
		options := make([]string, 0, 4)
		w := 0
		for o := 0; o < 4; o++ {
			if o == correct {
				options = append(options, fact)
				continue
			}
			options = append(options, wrong[w%len(wrong)])
			w++
		}
		questions = append(questions, model.MCQQuestion{
			Id:            ids[i],
			Text:          fmt.Sprintf("Selon « %s », quelle affirmation est exacte ? (%d/%d)", doc.Title, i+1, count),
			Options:       options,
			CorrectOption: correct,
			Explanation:   fact + ".",
		})
	}
	return questions
}

// grade scores answers against the submitted question set; the service keeps no
// per-attempt state before submission.
func grade(questions []model.MCQQuestion, answers []model.Answer) (score float64, correct int, explanations []model.Explanation) {
	selected := make(map[int64]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionId] = a.SelectedOption
	}
	explanations = make([]model.Explanation, 0, len(questions))
	for _, q := range questions {
		if s, ok := selected[q.Id]; ok && s == q.CorrectOption {
			correct++
		}
		explanations = append(explanations, model.Explanation{QuestionId: q.Id, Explanation: q.Explanation})
	}
	if len(questions) > 0 {
		score = round2(float64(correct) / float64(len(questions)) * 100)
	}
	return score, correct, explanations
}

func chatReply(doc model.Document, content, message string) (string, []string) {
	facts := sentences(content)
	lower := strings.ToLower(message)

	var reply string
	switch {
	case strings.Contains(lower, "résum") || strings.Contains(lower, "summar"):
		n := 2
		if len(facts) < n {
			n = len(facts)
		}
		reply = fmt.Sprintf("Résumé de « %s » : %s.", doc.Title, strings.Join(facts[:n], ". "))
	default:
		reply = fmt.Sprintf("D'après « %s » : %s.", doc.Title, bestMatch(facts, lower))
	}

	followUps := []string{
		"Pouvez-vous donner un exemple ?",
		fmt.Sprintf("Quels sont les pièges classiques sur « %s » ?", doc.Title),
	}
	return reply, followUps
}

func bestMatch(facts []string, message string) string {
	best, bestScore := facts[0], 0
	words := strings.Fields(message)
	for _, f := range facts {
		lf := strings.ToLower(f)
		score := 0
		for _, w := range words {
			if len(w) > 3 && strings.Contains(lf, w) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = f, score
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}
