package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/gsconfig-go/gsconfig/pkg/catalog"
	"github.com/gsconfig-go/gsconfig/pkg/resource"
	"github.com/gsconfig-go/gsconfig/pkg/store"
)

const usage = `usage: gsctl [flags] <command> [args]

commands:
  workspaces                                  list workspaces
  stores <workspace>                          list data, coverage and WMS stores
  create-datastore <workspace> <name> [k=v]   create a data store with connection parameters
  resources <workspace> <datastore>           list feature types of a data store
  layers <workspace> <wmsstore>               list published WMS layers
  available <workspace> <wmsstore>            list remote layers a WMS store can publish

configuration is read from --config (yaml, toml or json) and GSCONFIG_* variables:
  url       REST base URL, e.g. http://localhost:8080/geoserver/rest
  user      basic auth user
  password  basic auth password
  timeout   per-request timeout (default 30s)
without a url, GSCONFIG_RUNTIME_MODE / GEOSERVER_REST_URL decide (mock by default).
`

type config struct {
	URL      string        `mapstructure:"url"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func main() {
	fs := flag.NewFlagSet("gsctl", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	verbose := fs.Bool("v", false, "log requests")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = fs.Parse(os.Args[1:])

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	cat, err := openCatalog(cfg, logger)
	if err != nil {
		logger.Error("open catalog", "err", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cat, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "gsctl:", err)
		var saveErr *resource.SaveError
		if errors.As(err, &saveErr) && saveErr.StatusCode != 0 {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func loadConfig(path string) (*config, error) {
	v := viper.New()
	v.SetEnvPrefix("GSCONFIG")
	v.AutomaticEnv()
	v.SetDefault("timeout", 30*time.Second)
	for _, key := range []string{"url", "user", "password"} {
		v.SetDefault(key, "")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName(".gsconfig")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func openCatalog(cfg *config, logger *slog.Logger) (*catalog.Catalog, error) {
	opts := []catalog.Option{catalog.WithLogger(logger)}
	if cfg.URL == "" {
		cat, mode, err := catalog.NewFromEnv(opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("catalog from environment", "mode", mode)
		return cat, nil
	}
	opts = append(opts, catalog.WithTimeout(cfg.Timeout))
	if cfg.User != "" {
		opts = append(opts, catalog.WithBasicAuth(cfg.User, cfg.Password))
	}
	return catalog.New(cfg.URL, opts...)
}

func run(ctx context.Context, cat *catalog.Catalog, args []string) error {
	cmd, args := args[0], args[1:]
	out := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer out.Flush()

	switch cmd {
	case "workspaces":
		list, err := cat.GetWorkspaces(ctx)
		if err != nil {
			return err
		}
		for _, ws := range list {
			fmt.Fprintln(out, ws.Name)
		}
		return nil
	case "stores":
		if len(args) != 1 {
			return fmt.Errorf("stores: want <workspace>")
		}
		return listStores(ctx, cat, out, args[0])
	case "create-datastore":
		if len(args) < 2 {
			return fmt.Errorf("create-datastore: want <workspace> <name> [key=value ...]")
		}
		return createDataStore(ctx, cat, args[0], args[1], args[2:])
	case "resources":
		if len(args) != 2 {
			return fmt.Errorf("resources: want <workspace> <datastore>")
		}
		ws, err := cat.GetWorkspace(ctx, args[0])
		if err != nil {
			return err
		}
		ds, err := store.NewDataStore(cat, ws, args[1])
		if err != nil {
			return err
		}
		fts, err := ds.GetResources(ctx)
		if err != nil {
			return err
		}
		for _, ft := range fts {
			title, _, err := ft.Title(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\t%s\n", ft.Name(), title)
		}
		return nil
	case "layers", "available":
		if len(args) != 2 {
			return fmt.Errorf("%s: want <workspace> <wmsstore>", cmd)
		}
		ws, err := cat.GetWorkspace(ctx, args[0])
		if err != nil {
			return err
		}
		wms, err := store.NewWmsStore(cat, ws, args[1], "", "")
		if err != nil {
			return err
		}
		listing, err := wms.GetResourcesMode(ctx, cmd == "available")
		if err != nil {
			return err
		}
		if listing.Available {
			for _, name := range listing.Names {
				fmt.Fprintln(out, name)
			}
			return nil
		}
		for _, layer := range listing.Layers {
			fmt.Fprintln(out, layer.Name())
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listStores(ctx context.Context, cat *catalog.Catalog, out *tabwriter.Writer, wsName string) error {
	ws, err := cat.GetWorkspace(ctx, wsName)
	if err != nil {
		return err
	}

	var (
		ds  []*store.DataStore
		cs  []*store.CoverageStore
		wms []*store.WmsStore
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ds, err = cat.GetDataStores(gctx, ws)
		return err
	})
	g.Go(func() (err error) {
		cs, err = cat.GetCoverageStores(gctx, ws)
		return err
	})
	g.Go(func() (err error) {
		wms, err = cat.GetWmsStores(gctx, ws)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(out, "KIND\tNAME\tENABLED")
	for _, s := range ds {
		if err := printStore(ctx, out, "datastore", s.Name(), s.Enabled); err != nil {
			return err
		}
	}
	for _, s := range cs {
		if err := printStore(ctx, out, "coveragestore", s.Name(), s.Enabled); err != nil {
			return err
		}
	}
	for _, s := range wms {
		if err := printStore(ctx, out, "wmsstore", s.Name(), s.Enabled); err != nil {
			return err
		}
	}
	return nil
}

func printStore(ctx context.Context, out *tabwriter.Writer, kind, name string, enabled func(context.Context) (bool, bool, error)) error {
	on, ok, err := enabled(ctx)
	if err != nil {
		return err
	}
	state := "-"
	if ok {
		state = fmt.Sprintf("%t", on)
	}
	fmt.Fprintf(out, "%s\t%s\t%s\n", kind, name, state)
	return nil
}

func createDataStore(ctx context.Context, cat *catalog.Catalog, wsName, name string, params []string) error {
	ws, err := cat.GetWorkspace(ctx, wsName)
	if err != nil {
		return err
	}
	ds, err := cat.CreateDataStore(ws, name)
	if err != nil {
		return err
	}
	kv := resource.NewKeyValues()
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return fmt.Errorf("create-datastore: parameter %q is not key=value", p)
		}
		kv.Set(key, value)
	}
	if err := ds.SetConnectionParameters(kv); err != nil {
		return err
	}
	if err := cat.Save(ctx, ds); err != nil {
		return err
	}
	fmt.Println("created", ds.Href())
	return nil
}
