package auth

import (
	"net/http"

	"go.uber.org/zap"

	"linggo_sync/internal/httpresponse"
	"linggo_sync/internal/middleware"
	authUC "linggo_sync/internal/usecase/auth"
	"linggo_sync/internal/utils"
)

type AuthHandler struct {
	usecaseHandler *authUC.AuthUsecaseHandler
	log            *zap.SugaredLogger
}

type TokenResponse struct {
	Token string `json:"token"`
}

func NewAuthHandler(uc *authUC.AuthUsecaseHandler, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		usecaseHandler: uc,
		log:            log,
	}
}

// Token godoc
// @Summary Issue a credential
// @Description Signs a JWT for uid and deviceId. Values are read from the query or from headers of the same name.
// @Tags auth
// @Produce json
// @Param uid query string true "User id"
// @Param deviceId query string true "Device id"
// @Param exp query string true "Lifetime: seconds, Go duration or Nd"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Router /api/auth/token [get]
func (a *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	token, err := a.usecaseHandler.IssueToken(
		utils.Param(r, "uid"),
		utils.Param(r, "deviceId"),
		utils.Param(r, "exp"),
	)
	if err != nil {
		httpresponse.WriteError(w, r, a.log, "Token", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, TokenResponse{Token: token})
}

// Verify answers the uid of a valid credential. Runs behind the Auth middleware.
func (a *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpresponse.WriteError(w, r, a.log, "Verify", middleware.MatchUID(r.Context(), ""))
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, claims.UID)
}

func (a *AuthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}
