package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"developertok/internal/domain/account"
	errs "developertok/internal/errors"
	"developertok/internal/httpresponse"
	"developertok/internal/middleware"
	authUC "developertok/internal/usecase/auth"
	"developertok/internal/utils"
)

type AuthHandler struct {
	usecaseHandler *authUC.AuthUsecaseHandler
	log            *zap.SugaredLogger
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string                `json:"token"`
	User  account.PublicAccount `json:"user"`
}

type ActivityRequest struct {
	Type      string `json:"type" validate:"required,oneof=lesson challenge badge"`
	Title     string `json:"title" validate:"required,max=200"`
	Completed bool   `json:"completed"`
	ItemID    string `json:"itemId"`
}

// ProgressRequest fields are pointers: an absent field is left untouched.
type ProgressRequest struct {
	LessonsCompleted *int             `json:"lessonsCompleted" validate:"omitempty,min=0"`
	ChallengesSolved *int             `json:"challengesSolved" validate:"omitempty,min=0"`
	TotalPoints      *int             `json:"totalPoints" validate:"omitempty,min=0"`
	CurrentStreak    *int             `json:"currentStreak" validate:"omitempty,min=0"`
	Badges           *int             `json:"badges" validate:"omitempty,min=0"`
	ActivityItem     *ActivityRequest `json:"activityItem"`
}

type ProgressResponse struct {
	Message        string                 `json:"message"`
	Progress       account.Progress       `json:"progress"`
	RecentActivity []account.ActivityItem `json:"recentActivity"`
}

func NewAuthHandler(usecaseHandler *authUC.AuthUsecaseHandler, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		usecaseHandler: usecaseHandler,
		log:            log,
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param register body RegisterRequest true "New user"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 500 {object} httpresponse.ErrorResponse
// @Router /api/register [post]
func (a *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		a.log.Warn("Register: bad request: ", err)
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := a.usecaseHandler.RegisterUser(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		a.writeError(w, "Register", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 500 {object} httpresponse.ErrorResponse
// @Router /api/login [post]
func (a *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		a.log.Warn("Login: bad request: ", err)
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := a.usecaseHandler.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, "Login", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Logout godoc
// @Summary Revoke the presented token
// @Tags auth
// @Produce json
// @Success 200 {object} httpresponse.MessageResponse
// @Failure 401 {object} httpresponse.ErrorResponse
// @Router /api/logout [post]
func (a *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.usecaseHandler.LogoutUser(r.Context(), r.Header.Get(middleware.AuthTokenHeader)); err != nil {
		a.writeError(w, "Logout", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, httpresponse.MessageResponse{Message: "Logged out successfully"})
}

// GetUserID resolves the x-auth-token header to an account id.
// On failure it writes the error response itself and returns false.
func (a *AuthHandler) GetUserID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	userID, err := a.usecaseHandler.Authenticate(r.Context(), r.Header.Get(middleware.AuthTokenHeader))
	if err != nil {
		a.writeError(w, op, err)
		return "", false
	}
	return userID, true
}

// GetUser godoc
// @Summary Current user
// @Description Returns the account of the token owner without its password
// @Tags user
// @Produce json
// @Param x-auth-token header string true "Token"
// @Success 200 {object} account.PublicAccount
// @Failure 401 {object} httpresponse.ErrorResponse
// @Failure 404 {object} httpresponse.ErrorResponse
// @Failure 500 {object} httpresponse.ErrorResponse
// @Router /api/user [get]
func (a *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.GetUserID(w, r, "GetUser")
	if !ok {
		return
	}

	user, err := a.usecaseHandler.GetAccount(r.Context(), userID)
	if err != nil {
		a.writeError(w, "GetUser", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, user)
}

// UpdateProgress godoc
// @Summary Update progress counters
// @Description Applies only the fields present in the body
// @Tags user
// @Accept json
// @Produce json
// @Param x-auth-token header string true "Token"
// @Param progress body ProgressRequest true "Fields to change"
// @Success 200 {object} ProgressResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 401 {object} httpresponse.ErrorResponse
// @Failure 404 {object} httpresponse.ErrorResponse
// @Failure 500 {object} httpresponse.ErrorResponse
// @Router /api/user/progress [post]
func (a *AuthHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.GetUserID(w, r, "UpdateProgress")
	if !ok {
		return
	}

	// an empty body only refreshes lastActive
	var req ProgressRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil && !errors.Is(err, utils.ErrEmptyBody) {
		a.log.Warn("UpdateProgress: bad request: ", err)
		httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ActivityItem != nil {
		if err := utils.ValidateStruct(req.ActivityItem); err != nil {
			httpresponse.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	user, err := a.usecaseHandler.UpdateProgress(r.Context(), userID, req.toPatch())
	if err != nil {
		a.writeError(w, "UpdateProgress", err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, ProgressResponse{
		Message:        "Progress updated successfully",
		Progress:       user.Progress,
		RecentActivity: user.RecentActivity,
	})
}

func (p ProgressRequest) toPatch() account.ProgressPatch {
	patch := account.ProgressPatch{
		LessonsCompleted: p.LessonsCompleted,
		ChallengesSolved: p.ChallengesSolved,
		TotalPoints:      p.TotalPoints,
		CurrentStreak:    p.CurrentStreak,
		Badges:           p.Badges,
	}
	if p.ActivityItem != nil {
		patch.Activity = &account.ActivityItem{
			Kind:      account.ActivityKind(p.ActivityItem.Type),
			Title:     p.ActivityItem.Title,
			Completed: p.ActivityItem.Completed,
			ItemID:    p.ActivityItem.ItemID,
		}
	}
	return patch
}

// writeError maps use case errors onto status codes and client messages.
// Causes of unexpected errors stay in the log.
func (a *AuthHandler) writeError(w http.ResponseWriter, op string, err error) {
	WriteError(w, a.log, op, err)
}

func WriteError(w http.ResponseWriter, log *zap.SugaredLogger, op string, err error) {
	switch {
	case errors.Is(err, errs.ErrDuplicateEmail):
		log.Infof("%s: %v", op, err)
		httpresponse.WriteError(w, http.StatusBadRequest, "User already exists with this email")
	case errors.Is(err, errs.ErrDuplicateUsername):
		log.Infof("%s: %v", op, err)
		httpresponse.WriteError(w, http.StatusBadRequest, "Username is already taken")
	case errors.Is(err, errs.ErrInvalidCredentials):
		log.Infof("%s: %v", op, err)
		httpresponse.WriteError(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, errs.ErrPasswordTooLong):
		log.Infof("%s: %v", op, err)
		httpresponse.WriteError(w, http.StatusBadRequest, "Password must be at most 72 bytes")
	case errors.Is(err, errs.ErrInvalidActivity):
		httpresponse.WriteError(w, http.StatusBadRequest, "Activity item is not valid")
	case errors.Is(err, errs.ErrTokenMissing):
		log.Warnf("%s: no token", op)
		httpresponse.WriteError(w, http.StatusUnauthorized, "No token, authorization denied")
	case errors.Is(err, errs.ErrInvalidToken):
		log.Warnf("%s: %v", op, err)
		httpresponse.WriteError(w, http.StatusUnauthorized, "Token is not valid")
	case errors.Is(err, errs.ErrUserNotFound):
		log.Warnf("%s: %v", op, err)
		httpresponse.WriteError(w, http.StatusNotFound, "User not found")
	default:
		log.Errorf("%s: internal error: %v", op, err)
		httpresponse.WriteError(w, http.StatusInternalServerError, httpresponse.SERVERERROR_errorDesc)
	}
}
