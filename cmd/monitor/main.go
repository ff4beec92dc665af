package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/api"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/config"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/dispatcher"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/k8s"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/metrics"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/monitor"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/notify"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/scanner"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:   "crashloop-monitor",
		Short: "Kubernetes CrashLoopBackOff monitor (alerts + dashboard)",
	}

	var kubeconfig, contextName, cfgPath string
	root.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "path to kubeconfig (out-of-cluster)")
	root.PersistentFlags().StringVar(&contextName, "context", "", "kubeconfig context to use")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "optional YAML config path (env vars override)")

	// --- daemon mode ---
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop and the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)

			st := store.New(cfg.DataDir)
			if err := st.Ensure(); err != nil {
				return err
			}
			cs, err := k8s.NewClient(kubeconfig, contextName)
			if err != nil {
				return err
			}
			metrics.MustRegister()

			sc := scanner.New(log, cs, cfg.Namespaces)
			disp := dispatcher.New(log, st, notify.NewEmail(log, cfg.Email), cfg.Cooldown)
			mon := monitor.New(log, sc, disp, cfg.Interval)
			srv := api.NewServer(log, st, cfg.HTTPAddr, cfg.Namespaces)

			ns := "ALL"
			if len(cfg.Namespaces) > 0 {
				ns = strings.Join(cfg.Namespaces, ",")
			}
			log.Info().Dur("interval", cfg.Interval).Dur("cooldown", cfg.Cooldown).
				Str("namespaces", ns).Str("data_dir", cfg.DataDir).Msg("monitor starting")

			ctx := withSignals()
			go mon.Run(ctx)
			return srv.Run(ctx)
		},
	}
	root.AddCommand(runCmd)

	// --- one-shot scan ---
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "List crash-looping containers once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			cs, err := k8s.NewClient(kubeconfig, contextName)
			if err != nil {
				return err
			}
			dets, err := scanner.New(log, cs, cfg.Namespaces).Scan(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range dets {
				fmt.Printf("%s/%s (%s) restarts=%d\n", d.Namespace, d.Pod, d.Container, d.Restarts)
			}
			if len(dets) == 0 {
				fmt.Println("no crash-looping containers found")
			}
			return nil
		},
	}
	root.AddCommand(scanCmd)

	// --- dump persisted events ---
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Print the persisted event log as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(store.New(cfg.DataDir).LoadEvents())
		},
	}
	root.AddCommand(eventsCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crashloop-monitor %s (%s) %s\n", version, commit, date)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-c; cancel() }()
	return ctx
}
