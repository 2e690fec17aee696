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

package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/padsync/strata/container"
)

var sessionCreateCmd *cobra.Command = &cobra.Command{
	Use:   "create",
	Short: "Create a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")
		blockSize, _ := cmd.Flags().GetInt("block-size")
		rawOrder, _ := cmd.Flags().GetString("ops")

		order, err := parseOpOrder(rawOrder)
		if err != nil {
			return err
		}

		registry, err := openRegistry()
		if err != nil {
			return err
		}
		defer registry.Close()

		session, err := registry.Create(container.Config{
			BlockSize: blockSize,
			Depth:     depth,
			OpOrder:   order,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Session: %s\n", session.ID())
		fmt.Printf("Commitment: %s\n", hex.EncodeToString(session.Commitment()))
		return nil
	},
}

func init() {
	f := sessionCreateCmd.Flags()
	f.Int("depth", container.DefaultConfig().Depth, "Number of nested layers")
	f.Int("block-size", container.DefaultConfig().BlockSize, "State block size in bytes")
	f.String("ops", container.DefaultOpOrder().String(), "Comma-delimited operation order, e.g. ADD,XOR")

	sessionCmd.AddCommand(sessionCreateCmd)
}
