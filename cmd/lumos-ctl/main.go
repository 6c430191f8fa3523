package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"lumos/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Daemon socket path")
	timeout := cli.DurationP("timeout", "t", 2*time.Minute, "How long to wait for the daemon")
	rate := cli.Float64("rate", 1, "Speech rate (settings)")
	pitch := cli.Float64("pitch", 1, "Speech pitch (settings)")
	volume := cli.Float64("volume", 1, "Speech volume (settings)")
	voiceID := cli.String("voice", "", "Voice id (settings)")
	asJSON := cli.Bool("json", false, "Print the raw response")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: lumos-ctl [flags] listen|say TEXT|speak TEXT|stop|voices|status|settings|reset")
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() == 0 {
		cli.Usage()
		os.Exit(2)
	}

	req := ipc.Request{
		Cmd:  cli.Arg(0),
		Text: strings.Join(cli.Args()[1:], " "),
	}
	if cli.CommandLine.Changed("rate") {
		req.Rate = rate
	}
	if cli.CommandLine.Changed("pitch") {
		req.Pitch = pitch
	}
	if cli.CommandLine.Changed("volume") {
		req.Volume = volume
	}
	if cli.CommandLine.Changed("voice") {
		req.Voice = voiceID
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := ipc.Send(ctx, *socket, req)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
	}
	if err != nil {
		if resp.Error == "" {
			fmt.Fprintln(os.Stderr, "lumos-daemon not running:", err)
		} else {
			fmt.Fprintln(os.Stderr, "lumos:", err)
		}
		os.Exit(1)
	}
	if *asJSON {
		return
	}

	show(resp)
}

func show(resp ipc.Response) {
	if resp.Transcript != "" {
		fmt.Printf("heard:  %s\n", resp.Transcript)
	}
	if resp.Intent != "" {
		fmt.Printf("spell:  %s\n", resp.Intent)
	}
	if resp.Reply != "" {
		fmt.Printf("reply:  %s\n", resp.Reply)
	}
	for _, v := range resp.Voices {
		mark := " "
		if v.Default {
			mark = "*"
		}
		fmt.Printf("%s %-12s %-24s %s\n", mark, v.ID, v.Name, v.Language)
	}
	if s := resp.Status; s != nil {
		fmt.Printf("voice:       %t (speaking %t)\n", s.VoiceSupported, s.Speaking)
		fmt.Printf("recognition: %t (listening %t)\n", s.RecognitionSupported, s.Listening)
		fmt.Printf("settings:    rate %.2f pitch %.2f volume %.2f voice %q\n",
			s.Settings.Rate, s.Settings.Pitch, s.Settings.Volume, s.Settings.Voice)
		if s.House != "" {
			fmt.Printf("house:       %s, mood %s\n", s.House, s.Mood)
		}
	}
}
