// Package main はアプリケーションのエントリーポイントを提供します。
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stsysd/lotbook/api"
	"github.com/stsysd/lotbook/config"
	"github.com/stsysd/lotbook/db"
	"github.com/stsysd/lotbook/model"
	"github.com/stsysd/lotbook/search"
	"github.com/stsysd/lotbook/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app はサブコマンド間で共有する設定とロガーです。
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "lotbook",
		Short:        "Lot and sample registry backed by a CSV file",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 設定の読み込み
			a.cfg = config.NewConfig()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.logger = a.cfg.NewLogger(cmd.ErrOrStderr())
			return nil
		},
	}

	root.AddCommand(
		a.serveCmd(),
		a.lotCmd(),
		a.sampleCmd(),
		a.searchCmd(),
		a.importCmd(),
	)
	return root
}

// openBackend は設定されたドライバーの保存先を開きます。
func (a *app) openBackend() (store.Backend, error) {
	if a.cfg.StoreDriver == config.DriverSQLite {
		// SQLiteストアの初期化（マイグレーション関数を渡す）
		backend, err := store.NewSQLiteBackend(a.cfg.DataDir, db.Migrate)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
	backend, err := store.NewCSVBackend(a.cfg.DataDir, a.cfg.CSVFile)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// openStore は保存先を開いて全件を読み込みます。
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	backend, err := a.openBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", a.cfg.StoreDriver, err)
	}
	st, err := store.New(ctx, backend, store.WithLogger(a.logger))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return st, nil
}

// withStore はストアを開いてfnを実行し、最後に閉じます。
func (a *app) withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	st, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAPIKey(); err != nil {
				return err
			}
			return a.withStore(cmd, func(st *store.Store) error {
				// サーバーインスタンスの作成と起動
				server := api.NewServer(st, a.cfg, a.logger)
				return server.Run(":" + a.cfg.Port)
			})
		},
	}
}

func (a *app) lotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lot",
		Short: "Manage lots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a lot and print its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				lot, err := st.CreateLot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printLot(cmd.OutOrStdout(), lot)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List lots in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				for _, lot := range st.Lots() {
					printLot(cmd.OutOrStdout(), lot)
				}
				return nil
			})
		},
	})

	return cmd
}

func (a *app) sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Manage samples",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add LOT NAME",
		Short: "Create a sample in a lot and print its full code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				sample, err := st.CreateSample(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printSample(cmd.OutOrStdout(), sample)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list LOT",
		Short: "List samples of a lot in creation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				if _, err := st.FindLot(args[0]); err != nil {
					return err
				}
				for _, sample := range st.FindSamplesByLot(args[0]) {
					printSample(cmd.OutOrStdout(), sample)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show FULLCODE",
		Short: "Show a sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				sample, err := st.FindSampleByFullCode(args[0])
				if err != nil {
					return err
				}
				printSample(cmd.OutOrStdout(), sample)
				return nil
			})
		},
	})

	var notes string
	var active bool
	update := &cobra.Command{
		Use:   "update FULLCODE",
		Short: "Update notes and the active flag of a sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				// 指定されなかったフラグは現在の値を保持する
				var update store.SampleUpdate
				if cmd.Flags().Changed("notes") {
					update.Notes = &notes
				}
				if cmd.Flags().Changed("active") {
					update.Active = &active
				}
				sample, err := st.PatchSample(cmd.Context(), args[0], update)
				if err != nil {
					return err
				}
				printSample(cmd.OutOrStdout(), sample)
				return nil
			})
		},
	}
	update.Flags().StringVar(&notes, "notes", "", "observation notes")
	update.Flags().BoolVar(&active, "active", false, "active flag")
	cmd.AddCommand(update)

	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Resolve a 12-digit full code or a pasted legacy row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(st *store.Store) error {
				result, err := search.NewResolver(st).Resolve(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printLot(out, result.Lot)
				printSample(out, result.Sample)
				fmt.Fprintf(out, "active\t%s\n", formatBool(result.Active))
				return nil
			})
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import CSVFILE",
		Short: "Replace the configured store with the contents of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot import %s: %w", path, err)
			}
			src, err := store.NewCSVBackend(filepath.Dir(path), filepath.Base(path))
			if err != nil {
				return err
			}
			defer src.Close()

			return a.withStore(cmd, func(st *store.Store) error {
				lots, samples, err := st.Import(cmd.Context(), src)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d lots and %d samples\n", lots, samples)
				return nil
			})
		},
	}
}

func printLot(w io.Writer, lot *model.Lot) {
	fmt.Fprintf(w, "%s\t%s\n", lot.LotCode, lot.Name)
}

func printSample(w io.Writer, s *model.Sample) {
	notes := strings.ReplaceAll(s.Notes, "\n", " ")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.FullCode, s.Name, formatBool(s.Active), s.CreatedAt.Format("2006-01-02 15:04:05"), notes)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
