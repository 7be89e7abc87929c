package server

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"edulycee-client/internal/model"
)

var (
	errEmailTaken      = errors.New("email already registered")
	errBadCredentials  = errors.New("invalid email or password")
	errUnknownDocument = errors.New("document not found")
	errUnknownAttempt  = errors.New("quiz attempt not found")
)

type user struct {
	id           int64
	username     string
	email        string
	passwordHash []byte
}

type view struct {
	pdfId int64
	at    time.Time
}

type attempt struct {
	userId    int64
	history   model.QuizHistory
	questions []model.MCQQuestion
}

type seedDocument struct {
	title    string
	category string
	content  string
}

var seedDocuments = []seedDocument{
	{"Les fonctions dérivées", "Mathématiques", "La dérivée mesure la variation instantanée d'une fonction. Une fonction croissante a une dérivée positive. La dérivée de x² est 2x. Les extremums locaux annulent la dérivée."},
	{"Suites numériques", "Mathématiques", "Une suite arithmétique ajoute une raison constante. Une suite géométrique multiplie par une raison constante. Une suite croissante et majorée converge."},
	{"Probabilités conditionnelles", "Mathématiques", "La probabilité de A sachant B vaut P(A et B) divisé par P(B). Deux événements indépendants vérifient P(A et B) = P(A)P(B). Un arbre pondéré organise les calculs."},
	{"Mécanique de Newton", "Physique", "Le principe d'inertie affirme qu'un corps isolé garde un mouvement rectiligne uniforme. La deuxième loi relie la force à l'accélération. Toute action entraîne une réaction opposée."},
	{"Ondes et signaux", "Physique", "Une onde transporte de l'énergie sans transport de matière. La fréquence est l'inverse de la période. La célérité dépend du milieu de propagation."},
	{"Réactions acido-basiques", "Chimie", "Un acide cède un proton. Une base capte un proton. Le pH mesure l'acidité d'une solution aqueuse. Un couple acide-base échange un proton."},
	{"Le tableau périodique", "Chimie", "Les éléments sont rangés par numéro atomique croissant. Les colonnes regroupent des éléments aux propriétés voisines. Les gaz nobles sont très stables."},
	{"La Révolution française", "Histoire", "La Révolution commence en 1789. La Déclaration des droits de l'homme proclame l'égalité en droits. La monarchie est abolie en 1792."},
	{"La guerre froide", "Histoire", "La guerre froide oppose les États-Unis et l'URSS. Le mur de Berlin tombe en 1989. La dissuasion nucléaire empêche l'affrontement direct."},
	{"Le romantisme", "Français", "Le romantisme exalte les sentiments et la nature. Victor Hugo en est une figure majeure. Le drame romantique rompt avec les règles classiques."},
	{"L'argumentation", "Français", "Une thèse est défendue par des arguments. Un exemple illustre un argument. La concession reconnaît une part de vérité à la thèse adverse."},
	{"La cellule", "SVT", "La cellule est l'unité du vivant. Le noyau contient l'ADN. La membrane plasmique délimite la cellule et contrôle les échanges."},
	{"La photosynthèse", "SVT", "La photosynthèse produit du glucose à partir de dioxyde de carbone et d'eau. Elle libère du dioxygène. Elle a lieu dans les chloroplastes."},
}

// catalog is the in-memory state of the stub service.
type catalog struct {
	mu          sync.Mutex
	users       map[int64]*user
	byEmail     map[string]int64
	nextUserId  int64
	documents   []model.Document
	contents    map[int64]string
	views       map[int64][]view
	attempts    map[int64]*attempt
	nextAttempt int64
	nextQId     int64
	difficulty  map[[2]int64]model.Difficulty
}

func newCatalog() *catalog {
	c := &catalog{
		users:      make(map[int64]*user),
		byEmail:    make(map[string]int64),
		contents:   make(map[int64]string),
		views:      make(map[int64][]view),
		attempts:   make(map[int64]*attempt),
		difficulty: make(map[[2]int64]model.Difficulty),
	}
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	for i, d := range seedDocuments {
		id := int64(i + 1)
		c.documents = append(c.documents, model.Document{
			Id:           id,
			Title:        d.title,
			Category:     d.category,
			ContentRef:   d.title,
			DownloadLink: "/files/" + strings.ReplaceAll(strings.ToLower(d.title), " ", "-") + ".pdf",
			CreatedAt:    model.Timestamp{Time: created.AddDate(0, 0, i)},
		})
		c.contents[id] = d.content
	}
	return c
}

func (c *catalog) addUser(username, email string, hash []byte) (*user, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(email)
	if _, exists := c.byEmail[key]; exists {
		return nil, errEmailTaken
	}
	c.nextUserId++
	u := &user{id: c.nextUserId, username: username, email: email, passwordHash: hash}
	c.users[u.id] = u
	c.byEmail[key] = u.id
	return u, nil
}

func (c *catalog) userByEmail(email string) (*user, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, false
	}
	return c.users[id], true
}

func (c *catalog) categories() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.documents {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Strings(out)
	return out
}

func (c *catalog) document(id int64) (model.Document, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.documents {
		if d.Id == id {
			return d, c.contents[id], true
		}
	}
	return model.Document{}, "", false
}

// query filters by category and, when text is set, by title or content.
func (c *catalog) query(text, category string, page, size int) model.DocumentPage {
	c.mu.Lock()
	defer c.mu.Unlock()

	text = strings.ToLower(strings.TrimSpace(text))
	var matched []model.Document
	for _, d := range c.documents {
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(d.Title), text) &&
			!strings.Contains(strings.ToLower(c.contents[d.Id]), text) {
			continue
		}
		matched = append(matched, d)
	}

	if size < 1 {
		size = 1
	}
	if page < 0 {
		page = 0
	}
	totalPages := (len(matched) + size - 1) / size
	start := page * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	docs := append([]model.Document{}, matched[start:end]...)
	return model.DocumentPage{Documents: docs, TotalPages: totalPages, CurrentPage: page}
}

func (c *catalog) recordView(userId, pdfId int64, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for _, d := range c.documents {
		if d.Id == pdfId {
			found = true
			break
		}
	}
	if !found {
		return errUnknownDocument
	}
	views := c.views[userId][:0:0]
	for _, v := range c.views[userId] {
		if v.pdfId != pdfId {
			views = append(views, v)
		}
	}
	c.views[userId] = append(views, view{pdfId: pdfId, at: at})
	return nil
}

// studied returns the documents a user opened, most recent first.
func (c *catalog) studied(userId int64) []model.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	views := c.views[userId]
	out := make([]model.Document, 0, len(views))
	for i := len(views) - 1; i >= 0; i-- {
		for _, d := range c.documents {
			if d.Id == views[i].pdfId {
				d.LastAccessed = model.Timestamp{Time: views[i].at}
				out = append(out, d)
			}
		}
	}
	return out
}

func (c *catalog) rememberDifficulty(userId, pdfId int64, d model.Difficulty) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.difficulty[[2]int64{userId, pdfId}] = d
}

func (c *catalog) questionIds(n int) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		c.nextQId++
		ids[i] = c.nextQId
	}
	return ids
}

func (c *catalog) recordAttempt(userId int64, h model.QuizHistory, questions []model.MCQQuestion) model.QuizHistory {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextAttempt++
	h.Id = c.nextAttempt
	h.Difficulty = string(c.difficulty[[2]int64{userId, h.PdfId}])
	for _, d := range c.documents {
		if d.Id == h.PdfId {
			h.PdfTitle = d.Title
		}
	}
	c.attempts[h.Id] = &attempt{userId: userId, history: h, questions: questions}
	return h
}

func (c *catalog) history(userId, pdfId int64) []model.QuizHistory {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []model.QuizHistory{}
	for _, a := range c.attempts {
		if a.userId != userId || (pdfId != 0 && a.history.PdfId != pdfId) {
			continue
		}
		out = append(out, a.history)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id > out[j].Id })
	return out
}

func (c *catalog) attemptQuestions(userId, attemptId int64) ([]model.MCQQuestion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.attempts[attemptId]
	if !ok || a.userId != userId {
		return nil, errUnknownAttempt
	}
	return append([]model.MCQQuestion{}, a.questions...), nil
}

func (c *catalog) categoryOf(pdfId int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.documents {
		if d.Id == pdfId {
			return d.Category
		}
	}
	return ""
}

// progress aggregates a user's attempts. The month boundary is taken from now.
func (c *catalog) progress(userId int64, now time.Time) model.UserProgress {
	attempts := c.history(userId, 0)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	p := model.UserProgress{UserId: userId, BySubject: []model.SubjectProgress{}}
	var total, monthTotal, beforeTotal float64
	var beforeCount int
	bySubject := make(map[string][]float64)
	for _, h := range attempts {
		p.QuizzesTaken++
		total += h.Score
		if !h.CompletedAt.Before(monthStart) {
			p.QuizzesTakenThisMonth++
			monthTotal += h.Score
		} else {
			beforeCount++
			beforeTotal += h.Score
		}
		subject := c.categoryOf(h.PdfId)
		bySubject[subject] = append(bySubject[subject], h.Score)
	}
	if p.QuizzesTaken > 0 {
		p.AverageScore = round2(total / float64(p.QuizzesTaken))
	}
	if p.QuizzesTakenThisMonth > 0 && beforeCount > 0 {
		p.ScoreChangeThisMonth = round2(monthTotal/float64(p.QuizzesTakenThisMonth) - beforeTotal/float64(beforeCount))
	}
	subjects := make([]string, 0, len(bySubject))
	for s := range bySubject {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	for _, s := range subjects {
		var sum float64
		for _, v := range bySubject[s] {
			sum += v
		}
		p.BySubject = append(p.BySubject, model.SubjectProgress{Subject: s, Progress: round2(sum / float64(len(bySubject[s])))})
	}
	return p
}

// recommendations suggests unopened documents, weakest subject first.
func (c *catalog) recommendations(userId int64, now time.Time) []model.Recommendation {
	p := c.progress(userId, now)
	weak := make(map[string]float64)
	for _, s := range p.BySubject {
		weak[s.Subject] = s.Progress
	}

	c.mu.Lock()
	opened := make(map[int64]bool)
	for _, v := range c.views[userId] {
		opened[v.pdfId] = true
	}
	var candidates []model.Document
	for _, d := range c.documents {
		if !opened[d.Id] {
			candidates = append(candidates, d)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		si, iok := weak[candidates[i].Category]
		sj, jok := weak[candidates[j].Category]
		if iok != jok {
			return iok
		}
		return si < sj
	})
	if len(candidates) > 3 {
		candidates = candidates[:3]
	}

	out := make([]model.Recommendation, 0, len(candidates))
	for _, d := range candidates {
		reason := "Nouveau document à découvrir"
		if score, ok := weak[d.Category]; ok {
			reason = "Renforcer " + d.Category + " (moyenne " + formatScore(score) + ")"
		}
		out = append(out, model.Recommendation{
			PdfId:     d.Id,
			Title:     d.Title,
			Reason:    reason,
			Category:  d.Category,
			Timestamp: model.Timestamp{Time: now},
		})
	}
	return out
}
