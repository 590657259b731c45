package cheats

import (
	"net/http"

	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/httpresponse"
	cheatsUC "linggo_sync/internal/usecase/cheats"
)

const CodeHeader = "code"

type CheatsHandler struct {
	usecase *cheatsUC.Usecase
	log     *zap.SugaredLogger
}

func NewCheatsHandler(uc *cheatsUC.Usecase, log *zap.SugaredLogger) *CheatsHandler {
	return &CheatsHandler{
		usecase: uc,
		log:     log,
	}
}

func (c *CheatsHandler) Current(w http.ResponseWriter, r *http.Request) {
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, c.usecase.Current())
}

// Verify checks the code header against today's code. Runs behind the device allow-list.
func (c *CheatsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if !c.usecase.Verify(r.Header.Get(CodeHeader)) {
		httpresponse.WriteError(w, r, c.log, "VerifyCheat", errs.ErrUnauthorized)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}
