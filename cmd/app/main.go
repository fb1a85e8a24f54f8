package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/scratchpad/internal"
	pkgconfig "github.com/starford/scratchpad/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if endpoint := cmd.String("endpoint"); endpoint != "" {
		cfg.Run.Endpoint = endpoint
		if err := cfg.Run.Validate(); err != nil {
			return nil, fmt.Errorf("endpoint: %w", err)
		}
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithImportDir(cmd.String("dir")),
	}
	if err := internal.RunMCP(ctx, opts...); err != nil {
		return fmt.Errorf("mcp error: %w", err)
	}
	return nil
}

func runDir(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunDir(ctx, os.Stdout, cmd.String("dir"), cmd.String("cmd"), cmd.StringSlice("env"),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr))
}

func main() {
	endpointFlag := &cli.StringFlag{
		Name:    "endpoint",
		Usage:   "Execution endpoint to post runs to (default: run on this host)",
		Sources: cli.EnvVars("RUN_ENDPOINT"),
	}

	cmd := &cli.Command{
		Name:   "scratchpad",
		Usage:  "Browser code editor with in-memory workspaces and a run endpoint",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			endpointFlag,
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve one workspace as MCP tools over stdio",
				Action: serveMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "Directory to preload into the workspace"},
				},
			},
			{
				Name:      "run",
				Usage:     "Post a directory and a command line for execution and print the output",
				ArgsUsage: " ",
				Action:    runDir,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: ".", Usage: "Directory to send"},
					&cli.StringFlag{Name: "cmd", Required: true, Usage: "Command line to run, e.g. 'go run .'"},
					&cli.StringSliceFlag{Name: "env", Usage: "Extra KEY=VALUE environment entries"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
