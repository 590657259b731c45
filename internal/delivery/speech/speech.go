package speech

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"linggo_sync/internal/httpresponse"
	speechUC "linggo_sync/internal/usecase/speech"
)

type SpeechHandler struct {
	usecase *speechUC.Usecase
	log     *zap.SugaredLogger
}

func NewSpeechHandler(uc *speechUC.Usecase, log *zap.SugaredLogger) *SpeechHandler {
	return &SpeechHandler{
		usecase: uc,
		log:     log,
	}
}

// Synthesize godoc
// @Summary Text to speech
// @Description Streams the audio Polly synthesizes for text.
// @Tags aws
// @Produce audio/ogg
// @Param text query string true "Text or SSML"
// @Param textType query string false "text or ssml"
// @Param outputFormat query string false "mp3, ogg_vorbis, pcm or json"
// @Param voiceId query string true "Polly voice"
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 502 {object} httpresponse.ErrorResponse
// @Router /api/aws/polly [get]
func (s *SpeechHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	audio, err := s.usecase.Synthesize(r.Context(), speechUC.Request{
		Text:         q.Get("text"),
		TextType:     q.Get("textType"),
		OutputFormat: q.Get("outputFormat"),
		VoiceID:      q.Get("voiceId"),
	})
	if err != nil {
		httpresponse.WriteError(w, r, s.log, "Synthesize", err)
		return
	}
	defer audio.Stream.Close()

	w.Header().Set("Content-Type", audio.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio.Stream); err != nil {
		s.log.Error("Synthesize: streaming audio: ", err)
	}
}
