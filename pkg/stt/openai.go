package stt

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"

	"lumos/pkg/audioconv"
)

// OpenAI uploads the audio to the transcription endpoint.
type OpenAI struct {
	client openai.Client
	model  openai.AudioModel
}

func NewOpenAI(client openai.Client, model string) *OpenAI {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &OpenAI{client: client, model: openai.AudioModel(model)}
}

func (o *OpenAI) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	if len(pcm16k) == 0 {
		return Result{}, ErrNoAudio
	}

	data, err := audioconv.WAV(pcm16k)
	if err != nil {
		return Result{}, err
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(data), "speech.wav", "audio/wav"),
		Model: o.model,
	}
	if opt.Language != "" && opt.Language != "auto" {
		params.Language = openai.String(opt.Language)
	}
	if opt.InitialPrompt != "" {
		params.Prompt = openai.String(opt.InitialPrompt)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: %w", err)
	}

	return Result{Text: resp.Text, Language: opt.Language}, nil
}
