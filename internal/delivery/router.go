package delivery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authDelivery "linggo_sync/internal/delivery/auth"
	cheatsDelivery "linggo_sync/internal/delivery/cheats"
	mailDelivery "linggo_sync/internal/delivery/mail"
	progressDelivery "linggo_sync/internal/delivery/progress"
	speechDelivery "linggo_sync/internal/delivery/speech"
	tokensDelivery "linggo_sync/internal/delivery/tokens"
	progressDomain "linggo_sync/internal/domain/progress"
	ownMiddleware "linggo_sync/internal/middleware"
)

// Handlers groups the feature handlers mounted by Router. Nil handlers leave
// their routes unmounted.
type Handlers struct {
	Auth     *authDelivery.AuthHandler
	Progress *progressDelivery.ProgressHandler
	Tokens   *tokensDelivery.TokenHandler
	Speech   *speechDelivery.SpeechHandler
	Cheats   *cheatsDelivery.CheatsHandler
	Mail     *mailDelivery.MailHandler
}

type Guards struct {
	Verifier ownMiddleware.Verifier
	Devices  []string
	Secret   string
	// Extra runs after panic recovery, e.g. error reporting.
	Extra []func(http.Handler) http.Handler
}

func Router(r chi.Router, h *Handlers, g Guards, log *zap.SugaredLogger, isLocalCors bool) {
	if isLocalCors {
		r.Use(ownMiddleware.CORS)
	}
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	for _, mw := range g.Extra {
		r.Use(mw)
	}

	authenticated := ownMiddleware.Auth(g.Verifier, log)
	internal := ownMiddleware.SharedSecret(g.Secret, log)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/token", h.Auth.Token)
		r.With(authenticated).Post("/verify", h.Auth.Verify)
		r.Get("/ping", h.Auth.Ping)
	})

	r.Route("/api/db/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			resourceRoutes(r, "/global", h.Progress, progressDomain.UserGlobal)
			r.Get("/global/{user_id}/linggoID", h.Progress.GetField(progressDomain.UserGlobal, "linggoID"))
			resourceRoutes(r, "/langdata", h.Progress, progressDomain.UserLanguage)
			resourceRoutes(r, "/dailyexp", h.Progress, progressDomain.DailyExp)

			if h.Tokens != nil {
				r.Post("/token", h.Tokens.Register)
				r.Get("/token/{user_id}", h.Tokens.Get)
				r.Delete("/token", h.Tokens.Remove)
			}
		})

		if h.Tokens != nil {
			r.Group(func(r chi.Router) {
				r.Use(internal)
				r.Get("/token/get-users-review-notifications", h.Tokens.ReviewRecipients)
				r.Get("/token/get-users-days-away", h.Tokens.DaysAwayRecipients)
			})
		}
	})

	r.Route("/api/db/language", func(r chi.Router) {
		r.Use(authenticated)
		resourceRoutes(r, "", h.Progress, progressDomain.LanguageContent)
		r.Post("/w/{word_id}", h.Progress.UpsertElement(progressDomain.LanguageContent, &progressDomain.Words, "word_id"))
		r.Post("/q/{question_id}", h.Progress.UpsertElement(progressDomain.LanguageContent, &progressDomain.Questions, "question_id"))
	})

	r.Route("/api/db/module", func(r chi.Router) {
		r.Use(authenticated)
		resourceRoutes(r, "", h.Progress, progressDomain.ModuleProgress)
		r.Post("/unit/{unit_id}", h.Progress.UpsertElement(progressDomain.ModuleProgress, &progressDomain.Units, "unit_id"))
		r.Post("/lesson/{type}/{lesson_id}", h.Progress.UpsertElement(progressDomain.ModuleProgress, nil, "lesson_id"))
	})

	if h.Speech != nil {
		r.With(authenticated).Get("/api/aws/polly", h.Speech.Synthesize)
	}

	if h.Cheats != nil {
		r.Route("/api/cheats", func(r chi.Router) {
			r.Get("/", h.Cheats.Current)
			r.With(ownMiddleware.DeviceAllowList(g.Devices, log)).Get("/verifyCheat", h.Cheats.Verify)
		})
	}

	if h.Mail != nil {
		r.With(internal).Post("/api/mail/welcome", h.Mail.Welcome)
	}
}

// resourceRoutes mounts the create-or-merge, fetch and marker routes of kind under prefix.
func resourceRoutes(r chi.Router, prefix string, h *progressDelivery.ProgressHandler, kind progressDomain.Kind) {
	root := prefix
	if root == "" {
		root = "/"
	}
	r.Post(root, h.Upsert(kind))
	r.Get(prefix+"/{user_id}", h.Get(kind))
	r.Get(prefix+"/{user_id}/updated", h.GetUpdated(kind))
}
