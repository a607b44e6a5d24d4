package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/GriffinCanCode/AgentOS/vfs/internal/domain/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/logging"
	fsprovider "github.com/GriffinCanCode/AgentOS/vfs/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/scripting"
	"github.com/GriffinCanCode/AgentOS/vfs/internal/types"
	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// mountFlags collects repeated -mount path=mountpoint flags.
type mountFlags []string

func (m *mountFlags) String() string { return strings.Join(*m, ",") }

func (m *mountFlags) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	var mounts mountFlags
	identity := flag.String("identity", cfg.Filesystem.Identity, "Identity naming the save directory")
	source := flag.String("source", cfg.Filesystem.Source, "Source directory or archive mounted at the root")
	fused := flag.Bool("fused", cfg.Filesystem.Fused, "Treat the source as fused with the executable")
	tool := flag.String("tool", "", "Tool ID to execute")
	params := flag.String("params", "{}", "Tool parameters as a JSON object")
	script := flag.String("script", "", "Script to run from the virtual filesystem")
	list := flag.Bool("list", false, "List the available tools")
	showMetrics := flag.Bool("metrics", false, "Print a metrics snapshot on exit")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Var(&mounts, "mount", "Extra real path to mount as path=mountpoint (repeatable)")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *dev {
		logCfg = logging.DevelopmentConfig()
	} else {
		logCfg.Level = cfg.Logging.Level
	}
	log, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	code := run(ctx, log, metrics, cfg, options{
		identity: *identity,
		source:   *source,
		fused:    *fused,
		mounts:   mounts,
		tool:     *tool,
		params:   *params,
		script:   *script,
		list:     *list,
	})

	if *showMetrics {
		printJSON(metrics.Snapshot())
	}
	os.Exit(code)
}

type options struct {
	identity string
	source   string
	fused    bool
	mounts   []string
	tool     string
	params   string
	script   string
	list     bool
}

func run(ctx context.Context, log *logging.Logger, metrics *monitoring.Metrics, cfg *config.Config, opts options) int {
	fsys := filesystem.New(
		filesystem.WithLogger(log),
		filesystem.WithMetrics(metrics),
		filesystem.WithAppdataFolder(cfg.Filesystem.AppdataFolder),
		filesystem.WithAllowedMountPaths(cfg.Filesystem.AllowedMounts...),
		filesystem.WithMaxReadSize(cfg.Filesystem.MaxReadSize),
		filesystem.WithRequirePath(cfg.Filesystem.RequirePath),
	)

	if err := fsys.Init(os.Args[0]); err != nil {
		log.Error("Failed to initialize filesystem", zap.Error(err))
		return 1
	}
	defer func() {
		if err := fsys.Close(); err != nil {
			log.Warn("Filesystem close reported errors", zap.Error(err))
		}
	}()

	fsys.SetFused(opts.fused)
	fsys.SetSymlinksEnabled(cfg.Filesystem.Symlinks)

	if opts.source != "" {
		if err := fsys.SetSource(opts.source); err != nil {
			log.Error("Failed to mount source", zap.String("source", opts.source), zap.Error(err))
			return 1
		}
	}
	if opts.identity != "" {
		if err := fsys.SetIdentity(opts.identity, cfg.Filesystem.AppendIdentity); err != nil {
			log.Error("Failed to set identity", zap.String("identity", opts.identity), zap.Error(err))
			return 1
		}
	}
	for _, m := range opts.mounts {
		realPath, mountPoint, _ := strings.Cut(m, "=")
		if err := fsys.MountFullPath(realPath, mountPoint, filesystem.PermissionRead, true); err != nil {
			log.Error("Failed to mount", zap.String("path", realPath), zap.Error(err))
			return 1
		}
	}

	provider := fsprovider.NewProvider(fsys, log)

	switch {
	case opts.list:
		printJSON(provider.Definition())
		return 0
	case opts.script != "":
		return runScript(ctx, log, fsys, opts.script)
	case opts.tool != "":
		return runTool(ctx, log, provider, opts.tool, opts.params)
	}

	flag.Usage()
	return 2
}

func runTool(ctx context.Context, log *logging.Logger, provider *fsprovider.Provider, tool, rawParams string) int {
	var params map[string]interface{}
	if err := sonic.UnmarshalString(rawParams, &params); err != nil {
		log.Error("Invalid tool parameters", zap.Error(err))
		return 2
	}

	result, err := provider.Execute(ctx, tool, params, &types.Context{})
	if err != nil {
		log.Error("Tool failed", zap.String("tool", tool), zap.Error(err))
		return 1
	}
	printJSON(result)
	if !result.Success {
		return 1
	}
	return 0
}

func runScript(ctx context.Context, log *logging.Logger, fsys *filesystem.Filesystem, name string) int {
	rt, err := scripting.New(fsys, log, scripting.DefaultConfig())
	if err != nil {
		log.Error("Failed to create script runtime", zap.Error(err))
		return 1
	}
	defer rt.Close()

	result, err := rt.Run(ctx, name)
	if result != nil {
		for _, entry := range result.Console {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", entry.Level, entry.Message)
		}
	}
	if err != nil {
		if errors.Is(err, filesystem.ErrModuleNotFound) {
			log.Error("Script module missing", zap.Error(err))
		} else {
			log.Error("Script failed", zap.String("script", name), zap.Error(err))
		}
		return 1
	}

	printJSON(map[string]interface{}{"value": result.Value, "duration": result.Duration.String()})
	return 0
}

func printJSON(v interface{}) {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
