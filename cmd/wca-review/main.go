// Command wca-review sends a diff, plus optional context files, to Watson
// Code Assistant and prints the review it returns.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"wca-openai-proxy/internal/config"
	"wca-openai-proxy/internal/prompt"
	"wca-openai-proxy/internal/wca"
	"wca-openai-proxy/pkg/logging"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "wca-review",
		Usage: "review a diff with Watson Code Assistant",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "diff-file", Usage: "path to the diff file", Required: true},
			&cli.StringFlag{Name: "prompt", Usage: "review instructions"},
			&cli.StringFlag{Name: "prompt-file", Usage: "path to a file containing the review instructions"},
			&cli.StringFlag{Name: "context-files", Usage: "comma-separated paths sent as attachments"},
		},
		Action: review,
	}
}

func review(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.HasAPIKey() {
		return config.ErrMissingAPIKey
	}

	instructions, err := resolveInstructions(c.String("prompt-file"), c.String("prompt"))
	if err != nil {
		return err
	}
	diff, err := os.ReadFile(c.String("diff-file"))
	if err != nil {
		return fmt.Errorf("read diff: %w", err)
	}

	payload, err := prompt.EncodePayload(reviewPrompt(instructions, string(diff)))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := wca.NewClient(wca.Config{
		URL:            cfg.WCABaseURL,
		IAMURL:         cfg.IAMURL,
		APIKey:         cfg.APIKey,
		Timeout:        cfg.BackendTimeout,
		AttachmentRoot: cfg.AttachmentRoot,
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	content, err := client.Submit(c.Context, payload, splitList(c.String("context-files")))
	if err != nil {
		logger.Error("review request failed", zap.Error(err))
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, content)
	return err
}
