// Package inventag parses inventag client configuration and dispatches its
// subcommands.
package inventag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/louisbranch/inventag/internal/client/credstore"
	entrypoint "github.com/louisbranch/inventag/internal/platform/cmd"
	"github.com/louisbranch/inventag/internal/platform/config"
	"github.com/louisbranch/inventag/internal/platform/discovery"
)

// Usage is printed for -h and unknown commands.
const Usage = `Usage: inventag [global flags] <command> [flags] [args]

Commands:
  login [username]   Log in and save the session token
  logout             Forget the saved session
  create             Create an item
  get <id>           Show one item
  list               List items
  print <id>         Compose the item's label PDF locally and save it
  tui                Open the interactive item editor

Global flags:
`

// ErrUsage reports a command line that could not be understood.
var ErrUsage = errors.New("usage error")

// Config holds inventag configuration. Flags override environment, which
// overrides the YAML config file.
type Config struct {
	ConfigPath  string `env:"INVENTAG_CONFIG"`
	SessionPath string `env:"INVENTAG_SESSION_FILE"`
	Server      string `env:"INVENTAG_SERVER"`
	LookupBase  string `env:"INVENTAG_LOOKUP_BASE"`
	BrandRef    string `env:"INVENTAG_BRAND_REF"`
	Currency    string `env:"INVENTAG_CURRENCY"`
	Title       string `env:"INVENTAG_LABEL_TITLE"`
	OutDir      string `env:"INVENTAG_OUT_DIR"`

	Command string
	Args    []string
}

// FileConfig is the YAML client config document.
type FileConfig struct {
	Server     string `yaml:"server"`
	LookupBase string `yaml:"lookup_base"`
	BrandRef   string `yaml:"brand"`
	Currency   string `yaml:"currency"`
	Title      string `yaml:"label_title"`
	OutDir     string `yaml:"out_dir"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/inventag/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(credstore.ConfigDir(), "config.yaml")
}

// ParseConfig parses environment, the config file and global flags. The
// first positional argument is the command; the rest are its arguments.
func ParseConfig(fs *pflag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	var (
		configPath = fs.String("config", cfg.ConfigPath, "Path to the YAML config file")
		server     = fs.String("server", "", "Inventory API base URL")
		outDir     = fs.String("out", "", "Directory label PDFs are written to")
	)
	fs.SetInterspersed(false)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.ConfigPath = *configPath
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath()
	}

	var file FileConfig
	if _, err := config.LoadYAMLFile(cfg.ConfigPath, &file); err != nil {
		return Config{}, err
	}
	cfg.Server = discovery.OrDefaultHTTPBaseURL(firstNonEmpty(*server, cfg.Server, file.Server), discovery.ServiceInventory)
	cfg.LookupBase = firstNonEmpty(cfg.LookupBase, file.LookupBase)
	cfg.BrandRef = firstNonEmpty(cfg.BrandRef, file.BrandRef)
	cfg.Currency = firstNonEmpty(cfg.Currency, file.Currency)
	cfg.Title = firstNonEmpty(cfg.Title, file.Title)
	cfg.OutDir = firstNonEmpty(*outDir, cfg.OutDir, file.OutDir, ".")
	if cfg.SessionPath == "" {
		cfg.SessionPath = credstore.Path()
	}
	if cfg.LookupBase == "" {
		cfg.LookupBase = strings.TrimRight(cfg.Server, "/") + "/api/itemdetails"
	}

	if fs.NArg() == 0 {
		return Config{}, fmt.Errorf("%w: a command is required", ErrUsage)
	}
	cfg.Command = fs.Arg(0)
	cfg.Args = fs.Args()[1:]
	return cfg, nil
}

// IO is the process's standard streams.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// ReadPassword reads a secret without echo. Nil prompts on the terminal.
	ReadPassword func(prompt string) (string, error)
}

// Run executes the configured command.
func Run(ctx context.Context, cfg Config, stdio IO) error {
	options := entrypoint.RunOptions{ShutdownTimeout: time.Second}
	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceInventag, options, func(ctx context.Context) error {
		return newRunner(cfg, stdio).run(ctx)
	})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
