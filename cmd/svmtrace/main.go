// svmtrace: SVM transaction instruction decoder and trace inspector.
//
// svmtrace decodes captured transaction executions into readable logs:
// instructions resolved against a program decoder registry, inner
// instructions rebuilt into their call tree, and account balance changes
// diffed across execution.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fortiblox/svmtrace/internal/config"
	"github.com/fortiblox/svmtrace/internal/types"
	"github.com/fortiblox/svmtrace/pkg/decoder"
	"github.com/fortiblox/svmtrace/pkg/decoder/computebudget"
	"github.com/fortiblox/svmtrace/pkg/decoder/system"
	"github.com/fortiblox/svmtrace/pkg/decoder/token"
	"github.com/fortiblox/svmtrace/pkg/logstore"
	"github.com/fortiblox/svmtrace/pkg/tracelog"
	"github.com/fortiblox/svmtrace/pkg/txlog"
)

// Version information.
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

var (
	cfgPath string
	cfg     config.Config
)

func main() {
	root := &cobra.Command{
		Use:           "svmtrace",
		Short:         "Decode SVM transaction executions into readable logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath == "" {
				cfg = config.DefaultConfig()
				return nil
			}
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file")

	root.AddCommand(newDecodeCmd(), newShowCmd(), newStatsCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRegistry builds the decoder registry: native program decoders plus the
// configured name-only entries.
func newRegistry() *decoder.Registry {
	reg := decoder.NewRegistry()
	reg.Register(system.NewDecoder())
	reg.Register(token.NewDecoder())
	reg.Register(token.NewToken2022Decoder())
	reg.Register(computebudget.NewDecoder())

	reg.RegisterName(types.AssociatedTokenProgramAddr, "Associated Token Program")
	reg.RegisterName(types.BPFLoaderUpgradeableAddr, "BPF Loader Upgradeable")

	for keyStr, name := range cfg.ProgramNames {
		key, err := types.PubkeyFromBase58(keyStr)
		if err != nil {
			continue // Validated at config load.
		}
		reg.RegisterName(key, name)
	}
	return reg
}

// newDiagLogger builds the zap diagnostics logger from the configured level.
func newDiagLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newDecodeCmd() *cobra.Command {
	var persist bool
	var echo bool

	cmd := &cobra.Command{
		Use:   "decode <fixture.json>",
		Short: "Decode a captured transaction fixture and render its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := loadFixture(args[0])
			if err != nil {
				return err
			}
			tx, meta, pre, post, err := fx.compile()
			if err != nil {
				return err
			}

			diag, err := newDiagLogger()
			if err != nil {
				return err
			}
			defer diag.Sync()

			log := txlog.NewAssembler(newRegistry()).Assemble(tx, meta, pre, post)

			tl := tracelog.New(tracelog.Config{
				Path:        cfg.TraceLog.Path,
				EchoSuccess: echo || cfg.TraceLog.EchoSuccess,
				MaxSizeMB:   cfg.TraceLog.MaxSizeMB,
				MaxBackups:  cfg.TraceLog.MaxBackups,
				MaxAgeDays:  cfg.TraceLog.MaxAgeDays,
				Logger:      diag,
			})
			defer tl.Close()

			seq, err := tl.Log(log)
			if err != nil {
				return err
			}
			fmt.Print(tracelog.Render(seq, log))

			if persist {
				store, err := logstore.Open(logstore.Config{Path: cfg.LogStore.Path, NoSync: cfg.LogStore.NoSync})
				if err != nil {
					return err
				}
				defer store.Close()
				if _, err := store.Append(log); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "append the decoded log to the log store")
	cmd.Flags().BoolVar(&echo, "echo", false, "write successful transactions to the trace file too")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <signature>",
		Short: "Show a stored decoded log by transaction signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := types.SignatureFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}

			store, err := logstore.Open(logstore.Config{Path: cfg.LogStore.Path, ReadOnly: true})
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.GetBySignature(sig)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show log store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := logstore.Open(logstore.Config{Path: cfg.LogStore.Path, ReadOnly: true})
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.GetStats()
			if err != nil {
				return err
			}
			fmt.Printf("logs: %d\n", stats.LogCount)
			fmt.Printf("database size: %d bytes\n", stats.DatabaseSize)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("svmtrace %s (%s)\n", Version, GitCommit)
		},
	}
}
