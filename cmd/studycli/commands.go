package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"edulycee-client/internal/bootstrap"
	"edulycee-client/internal/dto"
	"edulycee-client/internal/gateway"
	"edulycee-client/internal/model"
	"edulycee-client/internal/service"
	"edulycee-client/pkg/quiz"
	"edulycee-client/pkg/search"

	"github.com/fatih/color"
)

type cli struct {
	c         *bootstrap.Container
	documents map[int64]model.Document
	category  string
}

const help = `Commandes:
  login <email> <mot de passe>      register <nom> <email> <mot de passe>
  logout | whoami
  categories | category <nom|Tous>
  list [page] | search [/cat:<catégorie>] <texte> [#page]
  open <id> | close
  chat <message> | suggestions
  quiz config <nombre> <EASY|MEDIUM|HARD> | quiz cancel | quiz generate
  quiz answer <option> | quiz next | quiz prev | quiz submit | quiz reset
  quiz status | quiz review
  dashboard | history [id] | questions <tentative>
  logs [niveau] | exit`

func (l *cli) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		fmt.Println(help)
	case "login":
		err = l.login(ctx, args)
	case "register":
		err = l.register(ctx, args)
	case "logout":
		l.c.AuthService.Logout(ctx)
		color.Yellow("Déconnecté.")
	case "whoami":
		l.whoami()
	case "categories":
		err = l.categories(ctx)
	case "category":
		l.category = strings.Join(args, " ")
		color.Yellow("Filtre: %s", orAll(l.category))
	case "list":
		err = l.query(ctx, "", args)
	case "search":
		err = l.search(ctx, strings.TrimSpace(strings.TrimPrefix(line, "search")))
	case "open":
		err = l.open(ctx, args)
	case "close":
		l.c.DocumentService.Close()
	case "chat":
		err = l.chat(ctx, strings.TrimSpace(strings.TrimPrefix(line, "chat")))
	case "suggestions":
		for i, s := range l.c.Chat.Suggestions() {
			fmt.Printf("  %d. %s\n", i+1, s)
		}
	case "quiz":
		err = l.quiz(ctx, args)
	case "dashboard":
		err = l.dashboard(ctx)
	case "history":
		err = l.history(ctx, args)
	case "questions":
		err = l.questions(ctx, args)
	case "logs":
		err = l.logs(args)
	default:
		err = fmt.Errorf("commande inconnue %q, tapez 'help'", cmd)
	}
	if err != nil {
		report(err)
	}
}

func report(err error) {
	kind := gateway.Classify(err)
	if kind == gateway.KindUnknown {
		color.Red("Erreur: %v", err)
		return
	}
	color.Red("Erreur (%s): %v", kind.MessageKey(), err)
}

func orAll(category string) string {
	if category == "" {
		return service.AllCategories
	}
	return category
}

func (l *cli) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <email> <mot de passe>")
	}
	identity, err := l.c.AuthService.Login(ctx, &dto.LoginRequest{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	color.Green("Bienvenue %s", identity.Email)
	return nil
}

func (l *cli) register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: register <nom> <email> <mot de passe>")
	}
	identity, err := l.c.AuthService.Register(ctx, &dto.RegisterRequest{Username: args[0], Email: args[1], Password: args[2]})
	if err != nil {
		return err
	}
	color.Green("Compte créé, connecté en tant que %s", identity.Username)
	return nil
}

func (l *cli) whoami() {
	identity := l.c.AuthService.Identity()
	if !identity.IsAuthenticated() {
		color.Yellow("Non connecté.")
		return
	}
	fmt.Printf("%s <%s> (id %d)\n", identity.Username, identity.Email, identity.UserId)
	if exp, ok := l.c.Auth.TokenExpiry(); ok {
		fmt.Printf("Jeton valide jusqu'au %s\n", exp.Local().Format("02/01/2006 15:04"))
	}
}

func (l *cli) categories(ctx context.Context) error {
	categories, err := l.c.LibraryService.Categories(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		fmt.Println("  " + c)
	}
	return nil
}

func pageArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	page, err := strconv.Atoi(args[0])
	if err != nil || page < 1 {
		return 0, fmt.Errorf("page invalide %q", args[0])
	}
	return page - 1, nil
}

// search accepts "/cat:<catégorie>" filters and an optional trailing "#<page>".
func (l *cli) search(ctx context.Context, raw string) error {
	var pageArgs []string
	if i := strings.LastIndex(raw, "#"); i >= 0 {
		pageArgs = []string{strings.TrimSpace(raw[i+1:])}
		raw = raw[:i]
	}
	filters := search.ParseQuery(raw)
	if filters.Text == "" && filters.Category == "" {
		return errors.New("usage: search [/cat:<catégorie>] <texte> [#page]")
	}
	category := l.category
	if filters.Category != "" {
		category = filters.Category
	}
	return l.run(ctx, filters.Text, category, pageArgs)
}

func (l *cli) query(ctx context.Context, text string, args []string) error {
	return l.run(ctx, text, l.category, args)
}

func (l *cli) run(ctx context.Context, text, category string, args []string) error {
	page, err := pageArg(args)
	if err != nil {
		return err
	}
	result, err := l.c.LibraryService.Query(ctx, service.DocumentQuery{Text: text, Category: category, Page: page})
	if err != nil {
		return err
	}
	if len(result.Documents) == 0 {
		color.Yellow("Aucun document.")
		return nil
	}
	for _, d := range result.Documents {
		l.documents[d.Id] = d
		fmt.Printf("  %3d  %-35s %s\n", d.Id, d.Title, d.Category)
	}
	fmt.Printf("Page %d/%d\n", result.CurrentPage+1, result.TotalPages)
	return nil
}

func idArg(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, errors.New(usage)
	}
	return id, nil
}

func (l *cli) open(ctx context.Context, args []string) error {
	id, err := idArg(args, "usage: open <id>")
	if err != nil {
		return err
	}
	doc, ok := l.documents[id]
	if !ok {
		return fmt.Errorf("document %d inconnu, lancez 'list' ou 'search' d'abord", id)
	}
	if err := l.c.DocumentService.Open(ctx, doc); err != nil {
		return err
	}
	color.Green("Document ouvert: %s", doc.Title)
	fmt.Println(l.c.Sessions.Content())
	return nil
}

func (l *cli) chat(ctx context.Context, message string) error {
	if err := l.c.Chat.SendMessage(ctx, message); err != nil {
		return err
	}
	transcript := l.c.Chat.Transcript()
	if n := len(transcript); n > 0 && transcript[n-1].Role == model.ChatRoleAssistant {
		color.Cyan("%s", transcript[n-1].Content)
	}
	for i, s := range l.c.Chat.Suggestions() {
		fmt.Printf("  %d. %s\n", i+1, s)
	}
	return nil
}

func (l *cli) quiz(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: quiz <config|cancel|generate|answer|next|prev|submit|reset|status|review>")
	}
	engine := l.c.Quiz
	switch args[0] {
	case "config":
		if len(args) != 3 {
			return errors.New("usage: quiz config <nombre> <EASY|MEDIUM|HARD>")
		}
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("nombre invalide %q", args[1])
		}
		difficulty, err := model.ParseDifficulty(strings.ToUpper(args[2]))
		if err != nil {
			return err
		}
		return engine.Configure(count, difficulty)
	case "cancel":
		return engine.CancelConfiguration()
	case "generate":
		if err := engine.Generate(ctx); err != nil {
			return err
		}
	case "answer":
		if len(args) != 2 {
			return errors.New("usage: quiz answer <option>")
		}
		option, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("option invalide %q", args[1])
		}
		snap := engine.Snapshot()
		if snap.Current == nil {
			return errors.New("aucune question en cours")
		}
		if err := engine.RecordAnswer(snap.Current.Id, option-1); err != nil {
			return err
		}
	case "next":
		if err := engine.Navigate(1); err != nil {
			return err
		}
	case "prev":
		if err := engine.Navigate(-1); err != nil {
			return err
		}
	case "submit":
		if err := engine.Submit(ctx); err != nil {
			return err
		}
	case "reset":
		return engine.Reset()
	case "review":
		return l.review()
	case "status":
	default:
		return fmt.Errorf("sous-commande inconnue %q", args[0])
	}
	printSnapshot(engine.Snapshot())
	return nil
}

func printSnapshot(snap quiz.Snapshot) {
	fmt.Printf("État: %s  Temps: %s\n", snap.State, model.FormatElapsed(snap.Elapsed))
	if snap.Err != nil {
		color.Red("Dernière erreur: %v", snap.Err)
	}
	switch snap.State {
	case quiz.Configuring:
		fmt.Printf("Configuration: %d questions, %s\n", snap.Config.QuestionCount, snap.Config.Difficulty)
	case quiz.InProgress, quiz.Submitting:
		if snap.Current == nil {
			return
		}
		index := snap.Session.CurrentIndex
		fmt.Printf("Question %d/%d (répondues: %d)\n", index+1, snap.Total, snap.Answered)
		color.Cyan("%s", snap.Current.Text)
		selected, answered := snap.Session.Answers[snap.Current.Id]
		for i, o := range snap.Current.Options {
			mark := " "
			if answered && selected == i {
				mark = "x"
			}
			fmt.Printf("  [%s] %d. %s\n", mark, i+1, o)
		}
	case quiz.Completed:
		if snap.Result == nil {
			return
		}
		printer := color.New(color.FgGreen)
		switch snap.Severity {
		case model.SeverityBorderline:
			printer = color.New(color.FgYellow)
		case model.SeverityUnfavorable:
			printer = color.New(color.FgRed)
		}
		printer.Printf("Score: %.0f%%\n", snap.Result.Score)
		for _, r := range snap.Result.Recommendations {
			fmt.Printf("  À revoir: %s (%s)\n", r.Title, r.Reason)
		}
	}
}

func (l *cli) review() error {
	reviews, err := l.c.Quiz.Review()
	if err != nil {
		return err
	}
	for i, r := range reviews {
		status := color.RedString("faux")
		if r.Correct {
			status = color.GreenString("juste")
		} else if !r.Answered {
			status = color.YellowString("sans réponse")
		}
		fmt.Printf("%d. %s [%s]\n", i+1, r.Question.Text, status)
		fmt.Printf("   Réponse: %s\n", r.Question.Options[r.Question.CorrectOption])
		if r.Explanation != "" {
			fmt.Printf("   %s\n", r.Explanation)
		}
	}
	return nil
}

func (l *cli) dashboard(ctx context.Context) error {
	identity := l.c.AuthService.Identity()
	dashboard, err := l.c.DashboardService.Load(ctx, identity.UserId)
	if err != nil {
		return err
	}
	if p := dashboard.Progress; p != nil {
		fmt.Printf("Quiz réalisés: %d (ce mois: %d)  Moyenne: %.1f%%  Évolution: %+.1f\n",
			p.QuizzesTaken, p.QuizzesTakenThisMonth, p.AverageScore, p.ScoreChangeThisMonth)
		for _, s := range p.BySubject {
			fmt.Printf("  %-15s %.0f%%\n", s.Subject, s.Progress)
		}
	}
	if len(dashboard.StudiedDocuments) > 0 {
		color.Cyan("Documents étudiés")
		for _, d := range dashboard.StudiedDocuments {
			l.documents[d.Id] = d
			fmt.Printf("  %3d  %s\n", d.Id, d.Title)
		}
	}
	if len(dashboard.Recommendations) > 0 {
		color.Cyan("Recommandations")
		for _, r := range dashboard.Recommendations {
			fmt.Printf("  %3d  %s (%s)\n", r.PdfId, r.Title, r.Reason)
		}
	}
	return nil
}

func (l *cli) history(ctx context.Context, args []string) error {
	var (
		items []model.QuizHistory
		err   error
	)
	if len(args) == 0 {
		items, err = l.c.HistoryService.All(ctx)
	} else {
		var id int64
		if id, err = idArg(args, "usage: history [id document]"); err != nil {
			return err
		}
		items, err = l.c.HistoryService.ForDocument(ctx, id)
	}
	if err != nil {
		return err
	}
	if len(items) == 0 {
		color.Yellow("Aucune tentative.")
		return nil
	}
	for _, h := range items {
		fmt.Printf("  #%d  %-30s %5.1f%%  %d questions  %s  %s\n",
			h.Id, h.PdfTitle, h.Score, h.QuestionCount, model.FormatElapsed(h.TimeTakenSeconds),
			h.CompletedAt.Local().Format("02/01/2006 15:04"))
	}

	summary := model.SummarizeHistory(items)
	if len(args) == 0 {
		if summary, err = l.c.HistoryService.Summary(ctx); err != nil {
			return err
		}
	}
	color.Cyan("%d tentatives, score moyen %.0f%%, temps total %s",
		summary.Count, summary.AverageScore, model.FormatElapsed(summary.TotalTimeSeconds))
	return nil
}

func (l *cli) questions(ctx context.Context, args []string) error {
	id, err := idArg(args, "usage: questions <id tentative>")
	if err != nil {
		return err
	}
	questions, err := l.c.HistoryService.Questions(ctx, id)
	if err != nil {
		return err
	}
	for i, q := range questions {
		fmt.Printf("%d. %s\n   -> %s\n", i+1, q.Text, q.Options[q.CorrectOption])
	}
	return nil
}

func (l *cli) logs(args []string) error {
	level := ""
	if len(args) > 0 {
		level = strings.ToUpper(args[0])
	}
	entries, err := l.c.Logger.GetLogs(level, 20, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %-5s %-12s %s\n", e.Timestamp, e.Level, e.Module, e.Message)
	}
	return nil
}
