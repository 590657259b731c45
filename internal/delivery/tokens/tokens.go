package tokens

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	tokenDomain "linggo_sync/internal/domain/token"
	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/httpresponse"
	"linggo_sync/internal/middleware"
	tokensUC "linggo_sync/internal/usecase/tokens"
	"linggo_sync/internal/utils"
)

type TokenHandler struct {
	usecase       *tokensUC.Usecase
	log           *zap.SugaredLogger
	daysAwayLower int
	daysAwayUpper int
	now           func() time.Time
}

type RemoveRequest struct {
	FcmToken string `json:"fcmToken"`
}

func NewTokenHandler(uc *tokensUC.Usecase, log *zap.SugaredLogger, daysAwayLower, daysAwayUpper int) *TokenHandler {
	return &TokenHandler{
		usecase:       uc,
		log:           log,
		daysAwayLower: daysAwayLower,
		daysAwayUpper: daysAwayUpper,
		now:           time.Now,
	}
}

// Register godoc
// @Summary Register a push token
// @Description Attaches the FCM token to the uid header, moving it away from any other user.
// @Tags tokens
// @Accept json
// @Produce json
// @Param uid header string true "User id"
// @Param token body tokenDomain.Registration true "Token and notification preferences"
// @Success 200 {object} tokenDomain.UserToken
// @Router /api/db/user/token [post]
func (t *TokenHandler) Register(w http.ResponseWriter, r *http.Request) {
	uid := r.Header.Get(utils.HeaderUID)
	if err := middleware.MatchUID(r.Context(), uid); err != nil {
		httpresponse.WriteError(w, r, t.log, "RegisterToken", err)
		return
	}

	var reg tokenDomain.Registration
	if err := utils.DecodeClientJSONRequest(r, &reg); err != nil {
		httpresponse.WriteError(w, r, t.log, "RegisterToken", err)
		return
	}

	user, err := t.usecase.Register(r.Context(), uid, reg)
	if err != nil {
		httpresponse.WriteError(w, r, t.log, "RegisterToken", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, user)
}

func (t *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if err := middleware.MatchUID(r.Context(), uid); err != nil {
		httpresponse.WriteError(w, r, t.log, "GetToken", err)
		return
	}

	user, err := t.usecase.Get(r.Context(), uid)
	if err != nil {
		httpresponse.WriteError(w, r, t.log, "GetToken", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, user)
}

func (t *TokenHandler) Remove(w http.ResponseWriter, r *http.Request) {
	uid := r.Header.Get(utils.HeaderUID)
	if err := middleware.MatchUID(r.Context(), uid); err != nil {
		httpresponse.WriteError(w, r, t.log, "RemoveToken", err)
		return
	}

	var req RemoveRequest
	if err := utils.DecodeClientJSONRequest(r, &req); err != nil {
		httpresponse.WriteError(w, r, t.log, "RemoveToken", err)
		return
	}

	if err := t.usecase.RemoveToken(r.Context(), uid, req.FcmToken); err != nil {
		httpresponse.WriteError(w, r, t.log, "RemoveToken", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// ReviewRecipients lists the users due for a review notification this hour.
func (t *TokenHandler) ReviewRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := t.usecase.ReviewRecipients(r.Context(), t.now())
	if err != nil {
		httpresponse.WriteError(w, r, t.log, "ReviewRecipients", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nonNil(recipients))
}

// DaysAwayRecipients lists the users whose last login lies lower..upper days ago.
func (t *TokenHandler) DaysAwayRecipients(w http.ResponseWriter, r *http.Request) {
	lower, err := intParam(r, "lower", t.daysAwayLower)
	if err != nil {
		httpresponse.WriteError(w, r, t.log, "DaysAwayRecipients", err)
		return
	}
	upper, err := intParam(r, "upper", t.daysAwayUpper)
	if err != nil {
		httpresponse.WriteError(w, r, t.log, "DaysAwayRecipients", err)
		return
	}

	recipients, err := t.usecase.DaysAwayRecipients(r.Context(), t.now(), lower, upper)
	if err != nil {
		httpresponse.WriteError(w, r, t.log, "DaysAwayRecipients", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nonNil(recipients))
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non negative integer", errs.ErrValidationFailed, name)
	}
	return n, nil
}

func nonNil(recipients []tokenDomain.Recipient) []tokenDomain.Recipient {
	if recipients == nil {
		return []tokenDomain.Recipient{}
	}
	return recipients
}
