package progress

import (
	"net/http"

	"go.uber.org/zap"

	authDelivery "developertok/internal/delivery/auth"
	"developertok/internal/domain/account"
	"developertok/internal/httpresponse"
	progressUC "developertok/internal/usecase/progress"
	"developertok/internal/utils"
)

type ProgressHandler struct {
	usecaseHandler *progressUC.ProgressUsecaseHandler
	auth           *authDelivery.AuthHandler
	log            *zap.SugaredLogger
}

type CompleteRequest struct {
	ID     string `json:"id"`
	Title  string `json:"title" validate:"required,max=200"`
	Points int    `json:"points" validate:"min=0"`
}

type BadgeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type ProgressResponse struct {
	Progress       account.Progress       `json:"progress"`
	RecentActivity []account.ActivityItem `json:"recentActivity"`
}

func NewProgressHandler(usecaseHandler *progressUC.ProgressUsecaseHandler, auth *authDelivery.AuthHandler, log *zap.SugaredLogger) *ProgressHandler {
	return &ProgressHandler{
		usecaseHandler: usecaseHandler,
		auth:           auth,
		log:            log,
	}
}

// CompleteLesson godoc
// @Summary Record a completed lesson
// @Tags progress
// @Accept json
// @Produce json
// @Param x-auth-token header string true "Token"
// @Param lesson body CompleteRequest true "Lesson; points default to 50"
// @Success 200 {object} ProgressResponse
// @Router /api/user/lessons/complete [post]
func (p *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := p.auth.GetUserID(w, r, "CompleteLesson")
	if !ok {
		return
	}

	var req CompleteRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := p.usecaseHandler.CompleteLesson(r.Context(), userID, req.ID, req.Title, req.Points)
	if err != nil {
		authDelivery.WriteError(w, p.log, "CompleteLesson", err)
		return
	}
	p.writeProgress(w, user)
}

// CompleteChallenge godoc
// @Summary Record a solved challenge
// @Tags progress
// @Accept json
// @Produce json
// @Param x-auth-token header string true "Token"
// @Param challenge body CompleteRequest true "Challenge; points default to 100"
// @Success 200 {object} ProgressResponse
// @Router /api/user/challenges/complete [post]
func (p *ProgressHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := p.auth.GetUserID(w, r, "CompleteChallenge")
	if !ok {
		return
	}

	var req CompleteRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := p.usecaseHandler.CompleteChallenge(r.Context(), userID, req.ID, req.Title, req.Points)
	if err != nil {
		authDelivery.WriteError(w, p.log, "CompleteChallenge", err)
		return
	}
	p.writeProgress(w, user)
}

// AwardBadge godoc
// @Summary Award a badge
// @Tags progress
// @Accept json
// @Produce json
// @Param x-auth-token header string true "Token"
// @Param badge body BadgeRequest true "Badge"
// @Success 200 {object} ProgressResponse
// @Router /api/user/badges [post]
func (p *ProgressHandler) AwardBadge(w http.ResponseWriter, r *http.Request) {
	userID, ok := p.auth.GetUserID(w, r, "AwardBadge")
	if !ok {
		return
	}

	var req BadgeRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := p.usecaseHandler.AwardBadge(r.Context(), userID, req.Name)
	if err != nil {
		authDelivery.WriteError(w, p.log, "AwardBadge", err)
		return
	}
	p.writeProgress(w, user)
}

func (p *ProgressHandler) writeProgress(w http.ResponseWriter, user account.PublicAccount) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, ProgressResponse{
		Progress:       user.Progress,
		RecentActivity: user.RecentActivity,
	})
}
