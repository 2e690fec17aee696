/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package cmd implements the strata command line tool.
package cmd

import (
	"context"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	v "github.com/spf13/viper"

	"github.com/padsync/strata/log"
	"github.com/padsync/strata/metrics"
)

// metricsServer serves the prometheus endpoint for the lifetime of a
// command when --metrics-addr is set.
var metricsServer *metrics.Server

var Root *cobra.Command = &cobra.Command{
	Use:   "strata",
	Short: "Layered synchronized state containers",
	Long: `strata manages layered state containers: create a session, evolve it
under shared entropy, derive pad-shifted clones and verify that two
sessions still belong to the same pair.`,
	// SilenceUsage is set to true -> https://github.com/spf13/cobra/issues/340
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetLogger("Strata", v.GetString("log"))
		if addr := v.GetString("metrics-addr"); addr != "" {
			metricsServer = metrics.NewServer(addr)
			metricsServer.Register(metrics.DefaultCollectors()...)
			go func() {
				if err := metricsServer.Start(); err != nil {
					log.Infof("Metrics endpoint failed: %v", err)
				}
			}()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if metricsServer == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Infof("Metrics endpoint shutdown failed: %v", err)
		}
		metricsServer = nil
	},
}

func init() {
	f := Root.PersistentFlags()
	f.StringP("log", "l", "error", "Choose between log levels: silent, error, info and debug")
	f.StringP("path", "p", defaultDataPath(), "Set default storage path")
	f.StringP("storage", "s", "badger", "Choose between different storage backends: badger|bplus")
	f.Int64P("cache", "c", 1<<25, "Reserve custom snapshot cache size in bytes")
	f.String("metrics-addr", "", "Expose prometheus metrics on this address; empty disables the endpoint")

	v.BindPFlag("log", f.Lookup("log"))
	v.BindPFlag("path", f.Lookup("path"))
	v.BindPFlag("storage", f.Lookup("storage"))
	v.BindPFlag("cache", f.Lookup("cache"))
	v.BindPFlag("metrics-addr", f.Lookup("metrics-addr"))
}

func defaultDataPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return "/var/tmp/strata.db"
	}
	return filepath.Join(home, ".strata")
}
