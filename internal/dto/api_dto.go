package dto

import "edulycee-client/internal/model"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	Token  string `json:"token"`
	UserId int64  `json:"userId"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type DocumentsResponse struct {
	Pdfs        []model.Document `json:"pdfs"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

type ContentResponse struct {
	Content string `json:"content"`
}

type TrackViewRequest struct {
	UserId int64 `json:"userId"`
}

type ChatRequest struct {
	PdfId   int64  `json:"pdfId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type ChatResponse struct {
	Response          string   `json:"response"`
	SuggestedFollowUp []string `json:"suggestedFollowUp"`
}

type MCQGenerationRequest struct {
	PdfId         int64            `json:"pdfId" validate:"required"`
	QuestionCount int              `json:"questionCount" validate:"min=1,max=50"`
	Difficulty    model.Difficulty `json:"difficulty" validate:"oneof=EASY MEDIUM HARD"`
}

type MCQResponse struct {
	Questions []model.MCQQuestion `json:"questions"`
}

// MCQSubmissionRequest carries the full question set: grading is stateless on the remote side.
type MCQSubmissionRequest struct {
	Answers          []model.Answer      `json:"answers" validate:"required,min=1"`
	TimeTakenSeconds int                 `json:"timeTakenSeconds" validate:"min=0"`
	Questions        []model.MCQQuestion `json:"questions" validate:"required,min=1"`
}

type MCQSubmissionResult = model.SubmissionResult

// ErrorResponse is the body shape the remote service uses for rejections.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
