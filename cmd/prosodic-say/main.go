// Command prosodic-say generates one utterance and saves or plays it.
//
//	prosodic-say -dialect varhadi -emotion happy -o out.wav "नमस्कार, कसे आहात?"
//	echo "काय झालं!" | prosodic-say -emotion punctuation -play
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgnsrekt/prosodic-go/internal/app"
	"github.com/dgnsrekt/prosodic-go/internal/config"
	"github.com/dgnsrekt/prosodic-go/internal/dialect"
	"github.com/dgnsrekt/prosodic-go/internal/emotion"
	"github.com/dgnsrekt/prosodic-go/internal/logging"
	"github.com/dgnsrekt/prosodic-go/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "prosodic-say:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dialectFlag := flag.String("dialect", cfg.DefaultDialect, "dialect: "+keys(dialect.All()))
	emotionFlag := flag.String("emotion", cfg.DefaultEmotion, "emotion: "+keys(emotion.All()))
	output := flag.String("o", "", "write the result to this file (.wav, .mp3, .ogg or .flac)")
	play := flag.Bool("play", false, "play the result and wait for it to finish")
	flag.Parse()

	d, err := dialect.Parse(*dialectFlag)
	if err != nil {
		return err
	}
	e, err := emotion.Parse(*emotionFlag)
	if err != nil {
		return err
	}

	text, err := readText(flag.Args(), os.Stdin)
	if err != nil {
		return err
	}
	if *output == "" && !*play {
		return fmt.Errorf("nothing to do: pass -o and/or -play")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engines, err := app.NewEngines(cfg, logger)
	if err != nil {
		return err
	}

	var out *app.Output
	if *play {
		out, err = app.NewOutput(cfg, logger)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	pipe, err := app.NewPipeline(cfg, engines, out, nil, logger)
	if err != nil {
		return err
	}
	defer pipe.Close()

	res, err := pipe.Generate(ctx, pipeline.Request{Text: text, Dialect: d, Emotion: e})
	if err != nil {
		return fmt.Errorf("generate (%s): %w", pipeline.Kind(err), err)
	}
	logger.Info("generated", "id", res.ID, "mode", res.Mode, "duration", res.Duration(), "segments", res.Segments)

	if *output != "" {
		if err := pipe.Save(ctx, *output); err != nil {
			return fmt.Errorf("save (%s): %w", pipeline.Kind(err), err)
		}
		fmt.Println(*output)
	}

	if *play {
		if _, err := pipe.Play(ctx); err != nil {
			return fmt.Errorf("play: %w", err)
		}
		if err := pipe.Wait(ctx); err != nil {
			pipe.Stop()
			return err
		}
	}

	return nil
}

// readText joins the arguments, or reads stdin when there are none.
func readText(args []string, stdin io.Reader) (string, error) {
	text := strings.Join(args, " ")
	if text == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text given")
	}
	return text, nil
}

func keys[T fmt.Stringer](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
