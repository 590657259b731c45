package mail

import (
	"net/http"

	"go.uber.org/zap"

	"linggo_sync/internal/httpresponse"
	mailUC "linggo_sync/internal/usecase/mail"
	"linggo_sync/internal/utils"
)

type MailHandler struct {
	usecase *mailUC.Usecase
	log     *zap.SugaredLogger
}

type SentResponse struct {
	MessageID string `json:"messageId"`
}

func NewMailHandler(uc *mailUC.Usecase, log *zap.SugaredLogger) *MailHandler {
	return &MailHandler{
		usecase: uc,
		log:     log,
	}
}

func (m *MailHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	var req mailUC.Welcome
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		httpresponse.WriteError(w, r, m.log, "Welcome", err)
		return
	}

	id, err := m.usecase.SendWelcome(r.Context(), req)
	if err != nil {
		httpresponse.WriteError(w, r, m.log, "Welcome", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, SentResponse{MessageID: id})
}
