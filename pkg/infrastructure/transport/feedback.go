package transport

import (
	"net/http"

	"figurestore/pkg/domain/model"
)

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	review, err := h.services.Feedback.SubmitReview(r.Context(), identity(r).UserID, productID, req.Rating, req.Comment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReviewResponse(review))
}

func (h *Handler) reviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	reviews, err := h.services.Feedback.Reviews(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		resp = append(resp, newReviewResponse(&reviews[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) submitQuestion(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req questionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	question, err := h.services.Feedback.SubmitQuestion(r.Context(), identity(r).UserID, productID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuestionResponse(question))
}

func (h *Handler) answerQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req answerRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	question, err := h.services.Feedback.AnswerQuestion(r.Context(), questionID, req.Answer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionResponse(question))
}

func (h *Handler) questions(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	questions, err := h.services.Feedback.Questions(r.Context(), productID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]questionResponse, 0, len(questions))
	for i := range questions {
		resp = append(resp, newQuestionResponse(&questions[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func newReviewResponse(review *model.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		UserID:    review.UserID,
		ProductID: review.ProductID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}
