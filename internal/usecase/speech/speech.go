package speech

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"go.uber.org/zap"

	errs "linggo_sync/internal/errors"
)

const (
	defaultTextType     = types.TextTypeText
	defaultOutputFormat = types.OutputFormatOggVorbis
)

type PollyAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type Request struct {
	Text         string
	TextType     string
	OutputFormat string
	VoiceID      string
}

// Audio is a synthesized stream. The caller closes Stream.
type Audio struct {
	Stream      io.ReadCloser
	ContentType string
}

type Usecase struct {
	polly PollyAPI
	log   *zap.SugaredLogger
}

func NewUsecase(client PollyAPI, log *zap.SugaredLogger) *Usecase {
	return &Usecase{
		polly: client,
		log:   log,
	}
}

func (u *Usecase) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	input, err := buildInput(req)
	if err != nil {
		return nil, err
	}

	out, err := u.polly.SynthesizeSpeech(ctx, input)
	if err != nil {
		u.log.Errorf("Synthesize: polly voice %s: %v", input.VoiceId, err)
		return nil, fmt.Errorf("%w: speech synthesis failed", errs.ErrUpstream)
	}

	contentType := ContentType(input.OutputFormat)
	if out.ContentType != nil && *out.ContentType != "" {
		contentType = *out.ContentType
	}
	return &Audio{Stream: out.AudioStream, ContentType: contentType}, nil
}

func buildInput(req Request) (*polly.SynthesizeSpeechInput, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", errs.ErrValidationFailed)
	}
	if req.VoiceID == "" {
		return nil, fmt.Errorf("%w: voiceId is required", errs.ErrValidationFailed)
	}

	textType := defaultTextType
	if req.TextType != "" {
		textType = types.TextType(req.TextType)
		if !slices.Contains(textType.Values(), textType) {
			return nil, fmt.Errorf("%w: unsupported textType %q", errs.ErrValidationFailed, req.TextType)
		}
	}

	format := defaultOutputFormat
	if req.OutputFormat != "" {
		format = types.OutputFormat(req.OutputFormat)
		if !slices.Contains(format.Values(), format) {
			return nil, fmt.Errorf("%w: unsupported outputFormat %q", errs.ErrValidationFailed, req.OutputFormat)
		}
	}

	voice := types.VoiceId(req.VoiceID)
	if !slices.Contains(voice.Values(), voice) {
		return nil, fmt.Errorf("%w: unsupported voiceId %q", errs.ErrValidationFailed, req.VoiceID)
	}

	return &polly.SynthesizeSpeechInput{
		Text:         aws.String(req.Text),
		TextType:     textType,
		OutputFormat: format,
		VoiceId:      voice,
	}, nil
}

// ContentType is the media type Polly produces for format.
func ContentType(format types.OutputFormat) string {
	switch format {
	case types.OutputFormatMp3:
		return "audio/mpeg"
	case types.OutputFormatPcm:
		return "audio/pcm"
	case types.OutputFormatJson:
		return "application/x-json-stream"
	default:
		return "audio/ogg"
	}
}
