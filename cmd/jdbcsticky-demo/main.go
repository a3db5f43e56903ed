// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Command jdbcsticky-demo wires a dispatcher and a SQLite-backed
// sqlfacade.Source together end to end: run a sample transaction, then
// shut down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/lindb/jdbcsticky/config"
	"github.com/lindb/jdbcsticky/dispatch"
	"github.com/lindb/jdbcsticky/pkg/logger"
	"github.com/lindb/jdbcsticky/sqldriver"
	"github.com/lindb/jdbcsticky/sqlfacade"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "jdbcsticky-demo",
	Short: "demonstrates a thread-affinity dispatcher pool over a blocking SQL driver",
	RunE:  run,
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "write a default dispatcher.toml",
	RunE: func(_ *cobra.Command, _ []string) error {
		path := cfgPath
		if path == "" {
			path = "dispatcher.toml"
		}
		return config.WriteDefaultTOML(path)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "dispatcher config file path")
	rootCmd.AddCommand(initConfigCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcherCfg := config.NewDefaultDispatcher()
	if cfgPath != "" {
		loaded, err := config.LoadDispatcherFromTOML(cfgPath)
		if err != nil {
			return fmt.Errorf("jdbcsticky-demo: %w", err)
		}
		dispatcherCfg = loaded
	}

	log := logger.GetLogger("Demo", "main")

	src, err := sqldriver.NewSQLite("file::memory:?cache=shared", 4)
	if err != nil {
		return fmt.Errorf("jdbcsticky-demo: opening sqlite source: %w", err)
	}

	var d dispatch.Dispatcher
	if dispatcherCfg.Enabled {
		d = dispatch.NewDispatcher(dispatcherCfg.ToDispatchConfig("demo", 4))
	} else {
		d = dispatch.NewPassthrough()
	}
	defer d.Close()

	if _, err := src.DB().ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ping (
		id INTEGER PRIMARY KEY, note TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("jdbcsticky-demo: creating demo table: %w", err)
	}

	result, err := sqlfacade.Transaction(ctx, d, src, sqlfacade.TxOptions{},
		func(ctx context.Context, tx *sqlx.Tx) (any, error) {
			res, execErr := tx.ExecContext(ctx, "INSERT INTO ping (note) VALUES (?)", "hello from a pinned worker")
			if execErr != nil {
				return nil, execErr
			}
			return res.RowsAffected()
		})
	if err != nil {
		return fmt.Errorf("jdbcsticky-demo: running demo transaction: %w", err)
	}
	log.Info("demo transaction committed", logger.Any("rowsAffected", result))

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
