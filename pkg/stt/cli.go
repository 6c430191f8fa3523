package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"lumos/pkg/audioconv"
)

// CLI runs an external whisper.cpp binary on a temporary WAV file.
type CLI struct {
	ExecPath string
	Model    string
}

func NewCLI(execPath, model string) *CLI {
	if execPath == "" {
		execPath = "whisper-cli"
	}
	return &CLI{ExecPath: execPath, Model: model}
}

func (c *CLI) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	if len(pcm16k) == 0 {
		return Result{}, ErrNoAudio
	}

	f, err := os.CreateTemp("", "lumos-*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp wav: %w", err)
	}
	defer os.Remove(f.Name())

	if err := audioconv.EncodeWAV(f, pcm16k, audioconv.SampleRate); err != nil {
		f.Close()
		return Result{}, err
	}
	if err := f.Close(); err != nil {
		return Result{}, err
	}

	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}

	args := []string{"-f", f.Name(), "-l", lang, "-nt", "-np"}
	if c.Model != "" {
		args = append([]string{"-m", c.Model}, args...)
	}
	if opt.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(opt.Threads))
	}
	if opt.TranslateToEn {
		args = append(args, "-tr")
	}
	if opt.InitialPrompt != "" {
		args = append(args, "--prompt", opt.InitialPrompt)
	}

	cmd := exec.CommandContext(ctx, c.ExecPath, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("%s: %w: %s", c.ExecPath, err, strings.TrimSpace(stderr.String()))
	}

	var lines []string
	for _, l := range strings.Split(out.String(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	return Result{Text: strings.Join(lines, " "), Language: lang}, nil
}
