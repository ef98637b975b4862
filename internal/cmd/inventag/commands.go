package inventag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/louisbranch/inventag/internal/artifact"
	"github.com/louisbranch/inventag/internal/artifact/asset"
	"github.com/louisbranch/inventag/internal/artifact/document"
	"github.com/louisbranch/inventag/internal/artifact/session"
	"github.com/louisbranch/inventag/internal/client/credstore"
	"github.com/louisbranch/inventag/internal/client/inventory"
	"github.com/louisbranch/inventag/internal/client/tui"
	"github.com/louisbranch/inventag/internal/platform/timeouts"
)

type runner struct {
	cfg   Config
	stdio IO
	now   func() time.Time
	// runProgram runs the TUI; tests replace it.
	runProgram func(tea.Model) error
}

func newRunner(cfg Config, stdio IO) *runner {
	if stdio.ReadPassword == nil {
		stdio.ReadPassword = terminalPassword(stdio.Err)
	}
	return &runner{
		cfg:   cfg,
		stdio: stdio,
		now:   time.Now,
		runProgram: func(model tea.Model) error {
			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInput(stdio.In), tea.WithOutput(stdio.Out)).Run()
			return err
		},
	}
}

func (r *runner) run(ctx context.Context) error {
	switch r.cfg.Command {
	case "login":
		return r.login(ctx, r.cfg.Args)
	case "logout":
		return r.logout(r.cfg.Args)
	case "create":
		return r.create(ctx, r.cfg.Args)
	case "get":
		return r.get(ctx, r.cfg.Args)
	case "list":
		return r.list(ctx, r.cfg.Args)
	case "print":
		return r.print(ctx, r.cfg.Args)
	case "tui":
		return r.tui(r.cfg.Args)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, r.cfg.Command)
	}
}

func (r *runner) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(r.stdio.Err)
	return fs
}

func (r *runner) login(ctx context.Context, args []string) error {
	fs := r.flagSet("login")
	passwordFile := fs.String("password-file", "", "Read the password from a file instead of prompting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(1))
	}

	username := fs.Arg(0)
	if username == "" {
		fmt.Fprint(r.stdio.Err, "Username: ")
		line, err := readLine(r.stdio.In)
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		username = line
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrUsage)
	}

	password, err := r.readPassword(*passwordFile)
	if err != nil {
		return err
	}

	client, err := inventory.New(r.cfg.Server)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Client)
	defer cancel()
	result, err := client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := r.saveSession(username, result); err != nil {
		return err
	}
	fmt.Fprintf(r.stdio.Err, "Logged in as %s\n", username)
	fmt.Fprintf(r.stdio.Err, "Session saved to %s\n", r.cfg.SessionPath)
	return nil
}

func (r *runner) saveSession(username string, result inventory.LoginResult) error {
	return credstore.Save(credstore.Session{
		Username:  username,
		Token:     result.Token,
		Server:    r.cfg.Server,
		ExpiresAt: result.ExpiresAt,
	}, r.cfg.SessionPath)
}

func (r *runner) readPassword(passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	password, err := r.stdio.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("%w: password is required", ErrUsage)
	}
	return password, nil
}

func (r *runner) logout(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: logout takes no arguments", ErrUsage)
	}
	if err := credstore.Clear(r.cfg.SessionPath); err != nil {
		return err
	}
	fmt.Fprintln(r.stdio.Err, "Logged out")
	return nil
}

// authedClient returns a client carrying the saved token. The saved server
// is used unless one was configured explicitly.
func (r *runner) authedClient() (*inventory.Client, credstore.Session, error) {
	saved, err := credstore.Load(r.cfg.SessionPath)
	if err != nil {
		return nil, credstore.Session{}, err
	}
	if saved.Expired(r.now()) {
		return nil, credstore.Session{}, errors.New(`session expired; run "inventag login" again`)
	}
	client, err := inventory.New(r.cfg.Server, inventory.WithToken(saved.Token))
	if err != nil {
		return nil, credstore.Session{}, err
	}
	return client, saved, nil
}

func (r *runner) create(ctx context.Context, args []string) error {
	fs := r.flagSet("create")
	var item inventory.Item
	fs.StringVar(&item.ID, "id", "", "Item id")
	fs.StringVar(&item.Name, "name", "", "Item name")
	fs.StringVar(&item.Price, "price", "", "Item price")
	fs.StringVar(&item.Description, "description", "", "Item description")
	asJSON := fs.Bool("json", false, "Print the item as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if item.ID == "" && fs.NArg() == 1 {
		item.ID = fs.Arg(0)
	} else if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("%w: --id is required", ErrUsage)
	}

	client, _, err := r.authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Client)
	defer cancel()
	created, err := client.CreateItem(ctx, item)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return r.printItem(created, *asJSON)
}

func (r *runner) get(ctx context.Context, args []string) error {
	fs := r.flagSet("get")
	asJSON := fs.Bool("json", false, "Print the item as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: get takes exactly one item id", ErrUsage)
	}
	client, _, err := r.authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Client)
	defer cancel()
	item, err := client.GetItem(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	return r.printItem(item, *asJSON)
}

func (r *runner) list(ctx context.Context, args []string) error {
	fs := r.flagSet("list")
	pageSize := fs.Int("page-size", 0, "Items per page (server default when 0)")
	pageToken := fs.String("page-token", "", "Resume after this item id")
	all := fs.Bool("all", false, "Follow page tokens until the last page")
	asJSON := fs.Bool("json", false, "Print items as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: list takes no arguments", ErrUsage)
	}
	client, _, err := r.authedClient()
	if err != nil {
		return err
	}

	var items []inventory.Item
	token := *pageToken
	for {
		pageCtx, cancel := context.WithTimeout(ctx, timeouts.Client)
		page, err := client.ListItems(pageCtx, *pageSize, token)
		cancel()
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		items = append(items, page.Items...)
		token = page.NextPageToken
		if !*all || token == "" {
			break
		}
	}

	if *asJSON {
		return r.writeJSON(inventory.ItemPage{Items: items, NextPageToken: token})
	}
	tw := tabwriter.NewWriter(r.stdio.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", item.ID, item.Name, item.Price)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if token != "" {
		fmt.Fprintf(r.stdio.Err, "More items: --page-token %s\n", token)
	}
	return nil
}

func (r *runner) printItem(item inventory.Item, asJSON bool) error {
	if asJSON {
		return r.writeJSON(item)
	}
	tw := tabwriter.NewWriter(r.stdio.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", item.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", item.Name)
	fmt.Fprintf(tw, "Price:\t%s\n", item.Price)
	fmt.Fprintf(tw, "Description:\t%s\n", item.Description)
	if item.CreatedBy != "" {
		fmt.Fprintf(tw, "Created by:\t%s\n", item.CreatedBy)
	}
	if !item.CreatedAt.IsZero() {
		fmt.Fprintf(tw, "Created at:\t%s\n", item.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (r *runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.stdio.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// print composes the label on this machine, or downloads the server's
// rendering with --remote.
func (r *runner) print(ctx context.Context, args []string) error {
	fs := r.flagSet("print")
	outDir := fs.String("out", r.cfg.OutDir, "Directory the PDF is written to")
	remote := fs.Bool("remote", false, "Download the label rendered by the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: print takes exactly one item id", ErrUsage)
	}
	id := fs.Arg(0)

	client, _, err := r.authedClient()
	if err != nil {
		return err
	}
	if *remote {
		return r.download(ctx, client, id, *outDir)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeouts.Client)
	item, err := client.GetItem(fetchCtx, id)
	cancel()
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}

	sess, err := r.newSession(session.DirSink{Dir: *outDir})
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.SetItem(item.Artifact())
	if err := sess.BlurIdentifier(); err != nil {
		return err
	}
	produceCtx, cancel := context.WithTimeout(ctx, timeouts.AssetLoad)
	defer cancel()
	if _, err := sess.ProduceArtifact(produceCtx).Wait(produceCtx); err != nil {
		return fmt.Errorf("produce label: %w", err)
	}
	receipt, err := sess.ExportArtifact(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.stdio.Out, "Wrote %s (%d bytes)\n", receipt.Location, receipt.Size)
	fmt.Fprintf(r.stdio.Out, "blake3 %s\n", receipt.Digest)
	return nil
}

func (r *runner) download(ctx context.Context, client *inventory.Client, id, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(outDir, ".label-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	ctx, cancel := context.WithTimeout(ctx, timeouts.Client)
	defer cancel()
	name, err := client.DownloadLabel(ctx, id, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("download label: %w", err)
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		name = artifact.Filename(id)
	}
	path := filepath.Join(outDir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save label: %w", err)
	}
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("chmod label: %w", err)
	}
	fmt.Fprintf(r.stdio.Out, "Wrote %s\n", path)
	return nil
}

func (r *runner) newSession(sink session.Sink) (*session.Session, error) {
	lookup, err := artifact.NewLookup(r.cfg.LookupBase)
	if err != nil {
		return nil, err
	}
	compositor, err := document.NewCompositor(
		document.WithBranding(document.Branding{Title: r.cfg.Title}),
		document.WithCurrency(r.cfg.Currency),
	)
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		Lookup:     lookup,
		Compositor: compositor,
		Loader:     asset.NewLibrary(),
		BrandRef:   r.cfg.BrandRef,
		Sink:       sink,
	})
}

func (r *runner) tui(args []string) error {
	fs := r.flagSet("tui")
	outDir := fs.String("out", r.cfg.OutDir, "Directory downloaded labels are written to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := inventory.New(r.cfg.Server)
	if err != nil {
		return err
	}
	cfg := tui.Config{API: client}
	saved, err := credstore.Load(r.cfg.SessionPath)
	switch {
	case err == nil && !saved.Expired(r.now()):
		client.SetToken(saved.Token)
		cfg.Username = saved.Username
		cfg.Authenticated = true
	case err == nil:
		cfg.Username = saved.Username
	case !errors.Is(err, credstore.ErrNoSession):
		return err
	}
	cfg.OnLogin = r.saveSession

	sess, err := r.newSession(session.DirSink{Dir: *outDir})
	if err != nil {
		return err
	}
	defer sess.Close()
	cfg.Session = sess

	return r.runProgram(tui.NewModel(cfg))
}
