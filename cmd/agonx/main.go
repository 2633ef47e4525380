// Command agonx is the terminal client for the AgonX retrieval-augmented
// chat service: interactive streaming chat, session management, and
// knowledge-base search.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/doAIs/AgonX/internal/api"
	"github.com/doAIs/AgonX/internal/auth"
	"github.com/doAIs/AgonX/internal/chat"
	"github.com/doAIs/AgonX/internal/config"
	agonerrors "github.com/doAIs/AgonX/internal/errors"
	"github.com/doAIs/AgonX/internal/knowledge"
	"github.com/doAIs/AgonX/internal/logging"
	"github.com/doAIs/AgonX/internal/orchestrator"
)

var (
	errText   = color.New(color.FgRed).SprintFunc()
	userText  = color.New(color.FgGreen, color.Bold).SprintFunc()
	agentText = color.New(color.FgCyan, color.Bold).SprintFunc()
	mutedText = color.New(color.FgHiBlack).SprintFunc()
	scoreText = color.New(color.FgYellow).SprintFunc()
	titleText = color.New(color.Bold).SprintFunc()
)

// app holds the wired clients shared by all subcommands.
type app struct {
	cfg      config.Config
	logger   logging.Logger
	creds    auth.CredentialSource
	client   *api.Client
	dir      *chat.Directory
	kb       *knowledge.Client
	searcher knowledge.Searcher
	orch     *orchestrator.Orchestrator
}

func newApp(configPath, baseURL, token string, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if token != "" {
		cfg.Token = token
	}

	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	logger := logging.NewComponentLoggerAt("agonx", level)

	var creds auth.CredentialSource
	if cfg.Token != "" {
		creds = auth.NewStaticToken(cfg.Token)
	} else {
		creds = auth.NewFileTokenStore(cfg.TokenFile)
	}

	client := api.NewClient(api.Options{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Credentials: creds,
		Logger:      logger,
		OnAuthError: func() {
			fmt.Fprintln(os.Stderr, errText("session expired, please run `agonx login` again"))
		},
	})

	dir := chat.NewDirectory(client)
	kb := knowledge.NewClient(client)

	var searcher knowledge.Searcher = kb
	if cached, err := knowledge.NewCachedSearcher(kb, cfg.SearchCacheSize); err == nil {
		searcher = cached
	}
	if cfg.SearchRetries > 0 {
		retryCfg := agonerrors.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.SearchRetries
		searcher = knowledge.NewRetryingSearcher(searcher, retryCfg, logger)
	}

	deltaPolicy := orchestrator.DeltaIncremental
	if cfg.DeltaPolicy == "cumulative" {
		deltaPolicy = orchestrator.DeltaCumulative
	}
	switchPolicy := orchestrator.SwitchDetach
	if cfg.SwitchPolicy == "cancel" {
		switchPolicy = orchestrator.SwitchCancel
	}

	orch := orchestrator.New(orchestrator.Options{
		Directory:    dir,
		Streams:      client,
		Retriever:    searcher,
		Logger:       logger,
		DeltaPolicy:  deltaPolicy,
		SwitchPolicy: switchPolicy,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		creds:    creds,
		client:   client,
		dir:      dir,
		kb:       kb,
		searcher: searcher,
		orch:     orch,
	}, nil
}

func main() {
	var (
		configPath string
		baseURL    string
		token      string
		verbose    bool
	)

	var application *app

	root := &cobra.Command{
		Use:           "agonx",
		Short:         "Terminal client for the AgonX retrieval-augmented chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			application, err = newApp(configPath, baseURL, token, verbose)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to agonx.yaml")
	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL override")
	root.PersistentFlags().StringVar(&token, "token", "", "bearer token override")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newChatCmd(func() *app { return application }),
		newSessionsCmd(func() *app { return application }),
		newKBCmd(func() *app { return application }),
		newLoginCmd(func() *app { return application }),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errText(err.Error()))
		os.Exit(1)
	}
}
