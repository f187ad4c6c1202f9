// Command extract runs a single extractText invocation and prints the reply
// envelope as JSON.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"ocrbridge/internal/bridge"
	"ocrbridge/internal/config"
	"ocrbridge/internal/server"
	"ocrbridge/internal/tessdata"
	"ocrbridge/pkg"
)

type reply struct {
	Result string `json:"result,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

type invoker interface {
	Handle(ctx context.Context, inv bridge.Invocation) (string, error)
}

// extract runs one extractText call and builds its reply. Empty flags are
// left out of the arguments so the bridge applies its own validation and
// defaults.
func extract(ctx context.Context, b invoker, imagePath, lang string) (reply, error) {
	args := map[string]any{}
	if imagePath != "" {
		args[bridge.KeyImagePath] = imagePath
	}
	if lang != "" {
		args[bridge.KeyLanguage] = lang
	}

	text, err := b.Handle(ctx, bridge.Invocation{Method: bridge.MethodExtractText, Arguments: args})
	if err != nil {
		return reply{Code: bridge.Code(err), Error: err.Error()}, err
	}
	return reply{Result: text}, nil
}

// run prints the reply to w and returns the process exit code.
func run(ctx context.Context, b invoker, imagePath, lang string, w io.Writer) int {
	out, err := extract(ctx, b, imagePath, lang)
	if perr := pkg.Print(w, out); perr != nil {
		return 2
	}
	if err != nil {
		return 1
	}
	return 0
}

func main() {
	imagePath := flag.String("image", "", "path to the image to recognize")
	lang := flag.String("lang", "", "tesseract language code (default eng)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := server.NewLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}

	engine, err := server.NewEngine(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	installer := tessdata.NewInstaller(server.BundleFS(cfg.BundleDir), cfg.TessdataDir(), logger)
	b := bridge.New(engine, installer, bridge.WithTimeout(cfg.Timeout), bridge.WithLogger(logger))

	code := run(context.Background(), b, *imagePath, *lang, os.Stdout)
	logger.Sync()
	os.Exit(code)
}
