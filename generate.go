package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/llm"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/pkg/client"
)

// runner is satisfied by both the local generation client and the API client.
type runner interface {
	Run(ctx context.Context, req generation.Request) (generation.Result, error)
}

type generateFlags struct {
	topic       string
	context     string
	contextFile string
	titles      []string
	industrial  bool
	file        string
	mimeType    string

	remote   bool
	apiURL   string
	email    string
	password string
}

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate <operation>",
	Short: "Run one generation operation and print the result as JSON",
	Long: `generate runs one of: topics, ideas, literature, extract, questions, designs, critique.

By default the provider is called directly with the configured API key. With
--remote the request goes through a running IdeaForge API instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := generation.ParseOperation(args[0])
		if err != nil {
			return err
		}
		req, err := buildRequest(op, genFlags)
		if err != nil {
			return err
		}

		var r runner
		if genFlags.remote {
			c, loggedIn, err := remoteRunner(cmd.Context(), genFlags)
			if err != nil {
				return err
			}
			if loggedIn {
				// Tokens from a password login live only for this command.
				defer func() {
					if err := c.Logout(context.WithoutCancel(cmd.Context())); err != nil {
						logger.Warn("Logout failed", logger.Fields{"error": err.Error()})
					}
				}()
			}
			r = c
		} else {
			r = newGenerationClient(cfg)
		}

		result, err := r.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genFlags.topic, "topic", "", "research topic")
	f.StringVar(&genFlags.context, "context", "", "project context or proposal text")
	f.StringVar(&genFlags.contextFile, "context-file", "", "read the context from a file")
	f.StringSliceVar(&genFlags.titles, "title", nil, "literature title (repeatable)")
	f.BoolVar(&genFlags.industrial, "industrial", false, "bias towards industrial R&D")
	f.StringVar(&genFlags.file, "file", "", "document to extract text from")
	f.StringVar(&genFlags.mimeType, "mime-type", "", "media type of --file (detected when empty)")

	f.BoolVar(&genFlags.remote, "remote", false, "call a running API instead of the provider")
	f.StringVar(&genFlags.apiURL, "api-url", "", "API base URL for --remote (default BASE_URL)")
	f.StringVar(&genFlags.email, "email", "", "account email for --remote")
	f.StringVar(&genFlags.password, "password", "", "account password for --remote (or IDEAFORGE_PASSWORD)")

	rootCmd.AddCommand(generateCmd)
}

func newGenerationClient(cfg *config.Config, observers ...generation.Observer) *generation.Client {
	opts := []generation.Option{generation.WithModels(cfg.FastModel, cfg.ProModel)}
	for _, o := range observers {
		opts = append(opts, generation.WithObserver(o))
	}
	return generation.NewClient(llm.NewProviderFactory(cfg), opts...)
}

// buildRequest turns flags into a request and checks the operation's primary input.
func buildRequest(op generation.Operation, f generateFlags) (generation.Request, error) {
	req := generation.Request{
		Operation:  op,
		Topic:      strings.TrimSpace(f.topic),
		Context:    strings.TrimSpace(f.context),
		Titles:     f.titles,
		Industrial: f.industrial,
	}

	if f.contextFile != "" {
		data, err := os.ReadFile(f.contextFile)
		if err != nil {
			return req, err
		}
		req.Context = strings.TrimSpace(string(data))
	}

	switch op {
	case generation.OpExpandTopic, generation.OpGenerateIdeas, generation.OpAnalyzeLiterature:
		if req.Topic == "" {
			return req, fmt.Errorf("%s requires --topic", op.Alias())
		}
	case generation.OpResearchQuestions, generation.OpExperimentDesigns, generation.OpCritiqueProposal:
		if req.Context == "" {
			return req, fmt.Errorf("%s requires --context or --context-file", op.Alias())
		}
	case generation.OpExtractText:
		if f.file == "" {
			return req, errors.New("extract requires --file")
		}
		data, err := os.ReadFile(f.file)
		if err != nil {
			return req, err
		}
		req.Content = data
		req.MIMEType = f.mimeType
		if req.MIMEType == "" {
			req.MIMEType = mime.TypeByExtension(filepath.Ext(f.file))
		}
		if req.MIMEType == "" {
			req.MIMEType = http.DetectContentType(data)
		}
	}
	return req, nil
}

// remoteRunner builds an API client. loggedIn reports whether it signed in with
// a password, in which case the caller owns the session and should log out.
func remoteRunner(ctx context.Context, f generateFlags) (c *client.Client, loggedIn bool, err error) {
	baseURL := f.apiURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	password := f.password
	if password == "" {
		password = os.Getenv("IDEAFORGE_PASSWORD")
	}

	c = client.New(baseURL)
	switch {
	case f.email != "" && password != "":
		if err := c.Login(ctx, f.email, password); err != nil {
			return nil, false, fmt.Errorf("login: %w", err)
		}
		return c, true, nil
	case os.Getenv("IDEAFORGE_ACCESS_TOKEN") != "":
		c.SetTokens(os.Getenv("IDEAFORGE_ACCESS_TOKEN"), os.Getenv("IDEAFORGE_REFRESH_TOKEN"))
		return c, false, nil
	default:
		return nil, false, errors.New("--remote needs --email and a password, or IDEAFORGE_ACCESS_TOKEN")
	}
}
