package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"edulycee-client/internal/dto"
	"edulycee-client/internal/model"
	"edulycee-client/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func fail(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(dto.ErrorResponse{Success: false, Code: status, Message: message})
}

func (s *Server) registerRoutes(app *fiber.App) {
	api := app.Group("/api")
	jwt := serverutils.JwtMiddleware(s.secretKey)

	auth := api.Group("/auth")
	auth.Post("/register", s.register)
	auth.Post("/login", s.login)

	api.Get("/pdfs", s.listDocuments)
	pdfs := api.Group("/pdfs")
	pdfs.Get("/categories", s.listCategories)
	pdfs.Get("/search", s.searchDocuments)
	pdfs.Get("/quiz-history/:id/questions", jwt, s.attemptQuestions)
	pdfs.Get("/:id/content", jwt, s.documentContent)
	pdfs.Post("/:id/viewed", jwt, s.trackView)
	pdfs.Post("/:id/mcq/submit", jwt, s.submitQuiz)

	ai := api.Group("/ai", jwt)
	ai.Post("/chat", s.chat)
	ai.Post("/generate-mcq", s.generateQuiz)

	api.Get("/progress/:userId", jwt, s.progress)
	api.Get("/users/:userId/studied-documents", jwt, s.studiedDocuments)
	api.Get("/users/:userId/recommendations", jwt, s.recommendations)
	api.Get("/quizzes/history", jwt, s.quizHistory)
	api.Get("/quizzes/history/:pdfId", jwt, s.quizHistory)
}

func (s *Server) register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u, err := s.data.addUser(strings.TrimSpace(req.Username), strings.TrimSpace(req.Email), hash)
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return s.issue(ctx, u)
}

func (s *Server) login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	u, ok := s.data.userByEmail(strings.TrimSpace(req.Email))
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		return fail(ctx, fiber.StatusUnauthorized, errBadCredentials.Error())
	}
	return s.issue(ctx, u)
}

func (s *Server) issue(ctx *fiber.Ctx, u *user) error {
	token, err := serverutils.IssueToken(s.secretKey(), u.id, u.email, s.tokenTTL)
	if err != nil {
		return err
	}
	return ctx.JSON(dto.AuthResponse{Token: token, UserId: u.id})
}

func (s *Server) listCategories(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.CategoriesResponse{Categories: s.data.categories()})
}

func pagingParams(ctx *fiber.Ctx) (string, int, int) {
	return ctx.Query("category"), ctx.QueryInt("page", 0), ctx.QueryInt("size", 12)
}

func (s *Server) listDocuments(ctx *fiber.Ctx) error {
	category, page, size := pagingParams(ctx)
	return ctx.JSON(toDocumentsResponse(s.data.query("", category, page, size)))
}

func (s *Server) searchDocuments(ctx *fiber.Ctx) error {
	category, page, size := pagingParams(ctx)
	if size < 1 {
		return fail(ctx, fiber.StatusBadRequest, "size must be at least 1")
	}
	return ctx.JSON(toDocumentsResponse(s.data.query(ctx.Query("q"), category, page, size)))
}

func toDocumentsResponse(p model.DocumentPage) dto.DocumentsResponse {
	return dto.DocumentsResponse{Pdfs: p.Documents, TotalPages: p.TotalPages, CurrentPage: p.CurrentPage}
}

func (s *Server) documentContent(ctx *fiber.Ctx) error {
	id, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid document id")
	}
	_, content, ok := s.data.document(int64(id))
	if !ok {
		return fail(ctx, fiber.StatusNotFound, errUnknownDocument.Error())
	}
	return ctx.JSON(dto.ContentResponse{Content: content})
}

func (s *Server) trackView(ctx *fiber.Ctx) error {
	id, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid document id")
	}
	var req dto.TrackViewRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid body")
	}
	userId := serverutils.UserID(ctx)
	if req.UserId != 0 && req.UserId != userId {
		return fail(ctx, fiber.StatusForbidden, "cannot track views for another user")
	}
	if err := s.data.recordView(userId, int64(id), time.Now()); err != nil {
		return fail(ctx, fiber.StatusNotFound, err.Error())
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (s *Server) chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	doc, content, ok := s.data.document(req.PdfId)
	if !ok {
		return fail(ctx, fiber.StatusNotFound, errUnknownDocument.Error())
	}
	reply, followUps := chatReply(doc, content, req.Message)
	return ctx.JSON(dto.ChatResponse{Response: reply, SuggestedFollowUp: followUps})
}

func (s *Server) generateQuiz(ctx *fiber.Ctx) error {
	var req dto.MCQGenerationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	doc, content, ok := s.data.document(req.PdfId)
	if !ok {
		return fail(ctx, fiber.StatusNotFound, errUnknownDocument.Error())
	}

	s.data.rememberDifficulty(serverutils.UserID(ctx), doc.Id, req.Difficulty)
	ids := s.data.questionIds(req.QuestionCount)
	questions := generateQuestions(doc, content, req.QuestionCount, req.Difficulty, ids)
	return ctx.JSON(dto.MCQResponse{Questions: questions})
}

func (s *Server) submitQuiz(ctx *fiber.Ctx) error {
	id, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid document id")
	}
	var req dto.MCQSubmissionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	if err := model.ValidateQuestions(req.Questions); err != nil {
		return fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	doc, _, ok := s.data.document(int64(id))
	if !ok {
		return fail(ctx, fiber.StatusNotFound, errUnknownDocument.Error())
	}

	score, correct, explanations := grade(req.Questions, req.Answers)
	userId := serverutils.UserID(ctx)
	s.data.recordAttempt(userId, model.QuizHistory{
		PdfId:            doc.Id,
		Score:            score,
		QuestionCount:    len(req.Questions),
		CorrectAnswers:   correct,
		CompletedAt:      model.Timestamp{Time: time.Now()},
		TimeTakenSeconds: req.TimeTakenSeconds,
	}, req.Questions)

	return ctx.JSON(dto.MCQSubmissionResult{
		Score:           score,
		Explanations:    explanations,
		Recommendations: s.followUpDocuments(doc, score),
	})
}

// followUpDocuments points at other documents of the same subject when the score
// leaves room for improvement.
func (s *Server) followUpDocuments(doc model.Document, score float64) []model.DocumentRecommendation {
	out := []model.DocumentRecommendation{}
	if score >= 80 {
		return out
	}
	page := s.data.query("", doc.Category, 0, 50)
	for _, d := range page.Documents {
		if d.Id == doc.Id {
			continue
		}
		out = append(out, model.DocumentRecommendation{
			PdfId:  d.Id,
			Title:  d.Title,
			Reason: "Réviser " + d.Category + " après un score de " + formatScore(score),
		})
		if len(out) == 2 {
			break
		}
	}
	return out
}

var errForeignUser = errors.New("cannot read another user's data")

// ownUser checks the path user against the token; on mismatch the response is
// already written and ok is false.
func (s *Server) ownUser(ctx *fiber.Ctx) (int64, bool, error) {
	id, err := strconv.ParseInt(ctx.Params("userId"), 10, 64)
	if err != nil {
		return 0, false, fail(ctx, fiber.StatusBadRequest, "invalid user id")
	}
	if id != serverutils.UserID(ctx) {
		return 0, false, fail(ctx, fiber.StatusForbidden, errForeignUser.Error())
	}
	return id, true, nil
}

func (s *Server) progress(ctx *fiber.Ctx) error {
	userId, ok, err := s.ownUser(ctx)
	if !ok {
		return err
	}
	return ctx.JSON(s.data.progress(userId, time.Now()))
}

func (s *Server) studiedDocuments(ctx *fiber.Ctx) error {
	userId, ok, err := s.ownUser(ctx)
	if !ok {
		return err
	}
	return ctx.JSON(s.data.studied(userId))
}

func (s *Server) recommendations(ctx *fiber.Ctx) error {
	userId, ok, err := s.ownUser(ctx)
	if !ok {
		return err
	}
	return ctx.JSON(s.data.recommendations(userId, time.Now()))
}

func (s *Server) quizHistory(ctx *fiber.Ctx) error {
	var pdfId int64
	if raw := ctx.Params("pdfId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fail(ctx, fiber.StatusBadRequest, "invalid document id")
		}
		pdfId = id
	}
	return ctx.JSON(s.data.history(serverutils.UserID(ctx), pdfId))
}

func (s *Server) attemptQuestions(ctx *fiber.Ctx) error {
	id, err := ctx.ParamsInt("id")
	if err != nil {
		return fail(ctx, fiber.StatusBadRequest, "invalid attempt id")
	}
	questions, err := s.data.attemptQuestions(serverutils.UserID(ctx), int64(id))
	if err != nil {
		return fail(ctx, fiber.StatusNotFound, err.Error())
	}
	return ctx.JSON(questions)
}
