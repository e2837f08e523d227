package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/elements/internal/config"
	"github.com/vango-dev/elements/internal/logging"
)

// cli carries state shared by the subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "elements",
		Short: "Resolve and register custom element declarations",
		Long: `elements turns declaration documents into registered component types.

Declarations (the markup side of a type) and scripts (its members) may
arrive in any order and from any number of documents. Each request waits
for its definition and for its supertype, then composes its prototype
and registers it.

Sources are files, directories, or s3://bucket/prefix URIs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgFile, "config", "c", "", "config file (default: ./elements.{json,yaml})")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: json or text")
	pf.StringSlice("tag", nil, "additional intrinsic tag (repeatable)")
	pf.Bool("lossy", false, "keep a single definition waiter per name")
	pf.String("sheets-root", "", "directory relative stylesheet paths resolve against")
	pf.Int("concurrency", 0, "maximum concurrent document fetches")
	pf.String("region", "", "AWS region for s3:// sources")

	c.bind(root, map[string]string{
		"log.level":          "log-level",
		"log.format":         "log-format",
		"platform.tags":      "tag",
		"ledger.lossy":       "lossy",
		"sheets.root":        "sheets-root",
		"loader.concurrency": "concurrency",
		"loader.region":      "region",
	})

	root.AddCommand(
		resolveCmd(c),
		serveCmd(c),
		watchCmd(c),
		versionCmd(),
	)
	return root
}

// bind attaches flags to configuration keys. Persistent and local flags
// are both searched.
func (c *cli) bind(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(flag)
		}
		_ = c.v.BindPFlag(key, f)
	}
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Options{
		Module:  "elements",
		Version: version,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Writer:  cmd.ErrOrStderr(),
	})
	if path := cfg.Path(); path != "" {
		c.logger.Debug("configuration loaded", "path", path)
	}
	return nil
}

// sources returns the positional sources, falling back to the
// configured ones.
func (c *cli) sources(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return c.cfg.Sources
}
