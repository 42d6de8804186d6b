package openai

import (
	"context"
	"fmt"
	"io"

	openaisdk "github.com/openai/openai-go"
)

// DefaultSpeechModel is used when NewSpeech receives an empty model.
const DefaultSpeechModel = "tts-1"

// Speech implements ports.SpeechRenderer with the text-to-speech endpoint.
type Speech struct {
	client *openaisdk.Client
	model  string
	voice  string
}

// NewSpeech creates a renderer producing MP3 audio.
func NewSpeech(client *openaisdk.Client, model, voice string) *Speech {
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = "alloy"
	}
	return &Speech{client: client, model: model, voice: voice}
}

// Render returns the audio for text.
func (s *Speech) Render(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Model:          openaisdk.SpeechModel(s.model),
		Input:          text,
		Voice:          openaisdk.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openaisdk.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("render speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	return audio, nil
}
