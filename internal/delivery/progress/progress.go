package progress

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	progressDomain "linggo_sync/internal/domain/progress"
	errs "linggo_sync/internal/errors"
	"linggo_sync/internal/httpresponse"
	"linggo_sync/internal/middleware"
	progressUC "linggo_sync/internal/usecase/progress"
	"linggo_sync/internal/utils"
)

// OutcomeHeader tells the client what a write did to the stored document.
const OutcomeHeader = "X-Sync-Outcome"

type ProgressHandler struct {
	engine *progressUC.Engine
	log    *zap.SugaredLogger
	// collections limits the language and module collections; empty allows any valid name.
	collections []string
}

func NewProgressHandler(engine *progressUC.Engine, log *zap.SugaredLogger, collections []string) *ProgressHandler {
	return &ProgressHandler{
		engine:      engine,
		log:         log,
		collections: collections,
	}
}

// Upsert godoc
// @Summary Create or merge a progress snapshot
// @Description Creates the document of the uid header or merges the body into it when the updated marker is newer.
// @Tags progress
// @Accept json
// @Produce json
// @Param uid header string true "User id, must match the credential"
// @Param updated header int true "Sync marker, epoch ms"
// @Success 200 {object} httpresponse.Response[any]
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 401 {object} httpresponse.ErrorResponse
func (h *ProgressHandler) Upsert(kind progressDomain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := "Upsert" + kind.Name
		uid := r.Header.Get(utils.HeaderUID)
		if err := middleware.MatchUID(r.Context(), uid); err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		target, err := h.target(r, kind)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		payload, err := utils.DecodeDocument(r)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		marker, err := utils.ParseMarker(r, payload)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		result, err := h.engine.Upsert(r.Context(), target, uid, payload, marker)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		writeResult(w, result)
	}
}

// UpsertElement handles the word, question, unit and lesson routes. param is
// the chi URL parameter carrying the element id; lesson routes resolve their
// array from the {type} parameter when array is nil.
func (h *ProgressHandler) UpsertElement(kind progressDomain.Kind, array *progressDomain.ElementArray, param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := "UpsertElement" + kind.Name
		uid := r.Header.Get(utils.HeaderUID)
		if err := middleware.MatchUID(r.Context(), uid); err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		target, err := h.target(r, kind)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		arr, err := resolveArray(r, array)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		element, err := utils.DecodeDocument(r)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		marker, err := utils.ParseMarker(r, element)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		delete(element, progressDomain.FieldUpdated)
		delete(element, progressDomain.FieldTimeStamp)

		id, err := elementID(arr, chi.URLParam(r, param))
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		result, err := h.engine.UpsertElement(r.Context(), target, uid, arr, id, element, marker)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		writeResult(w, result)
	}
}

func (h *ProgressHandler) Get(kind progressDomain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := "Get" + kind.Name
		target, uid, err := h.readTarget(r, kind)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		doc, err := h.engine.Fetch(r.Context(), target, uid)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, doc)
	}
}

func (h *ProgressHandler) GetUpdated(kind progressDomain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := "GetUpdated" + kind.Name
		target, uid, err := h.readTarget(r, kind)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		updated, err := h.engine.FetchUpdated(r.Context(), target, uid)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, updated)
	}
}

// GetField answers a single top level field, e.g. the linggoID of a user.
func (h *ProgressHandler) GetField(kind progressDomain.Kind, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := "GetField" + kind.Name
		target, uid, err := h.readTarget(r, kind)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}

		value, err := h.engine.FetchField(r.Context(), target, uid, field)
		if err != nil {
			httpresponse.WriteError(w, r, h.log, op, err)
			return
		}
		httpresponse.WriteResponseWithStatus(w, http.StatusOK, value)
	}
}

// readTarget checks the {user_id} of a read against the credential before
// anything else about the request is looked at.
func (h *ProgressHandler) readTarget(r *http.Request, kind progressDomain.Kind) (progressDomain.Target, string, error) {
	uid := chi.URLParam(r, "user_id")
	if err := middleware.MatchUID(r.Context(), uid); err != nil {
		return progressDomain.Target{}, "", err
	}
	target, err := h.target(r, kind)
	if err != nil {
		return target, "", err
	}
	return target, uid, nil
}

// target resolves the collection of kind. Kinds without a fixed collection
// take it from the language or module query parameter.
func (h *ProgressHandler) target(r *http.Request, kind progressDomain.Kind) (progressDomain.Target, error) {
	if kind.Collection != "" {
		return progressDomain.Target{Kind: kind, Collection: kind.Collection}, nil
	}

	param := "module"
	if kind.Name == progressDomain.LanguageContent.Name {
		param = "language"
	}
	name := r.URL.Query().Get(param)
	if name == "" {
		return progressDomain.Target{}, fmt.Errorf("%w: %s param is required", errs.ErrValidationFailed, param)
	}
	if !progressDomain.ValidCollectionName(name) {
		return progressDomain.Target{}, fmt.Errorf("%w: invalid %s %q", errs.ErrValidationFailed, param, name)
	}
	if len(h.collections) > 0 && !slices.Contains(h.collections, name) {
		return progressDomain.Target{}, fmt.Errorf("%w: unknown %s %q", errs.ErrValidationFailed, param, name)
	}
	return progressDomain.Target{Kind: kind, Collection: name}, nil
}

func resolveArray(r *http.Request, array *progressDomain.ElementArray) (progressDomain.ElementArray, error) {
	if array != nil {
		return *array, nil
	}
	lessonType := chi.URLParam(r, "type")
	arr, ok := progressDomain.LessonArray(lessonType)
	if !ok {
		return arr, fmt.Errorf("%w: unknown lesson type %q", errs.ErrValidationFailed, lessonType)
	}
	return arr, nil
}

func elementID(arr progressDomain.ElementArray, raw string) (any, error) {
	if !arr.NumericID {
		return raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s id must be numeric", errs.ErrValidationFailed, arr.Path)
	}
	return id, nil
}

func writeResult(w http.ResponseWriter, result progressUC.Result) {
	w.Header().Set(OutcomeHeader, string(result.Outcome))
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, result.Document)
}
