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
	"fmt"

	"github.com/spf13/cobra"
)

var sessionDestroyCmd *cobra.Command = &cobra.Command{
	Use:   "destroy",
	Short: "Zeroize a session and remove it from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		rawID, _ := cmd.Flags().GetString("id")
		markStringRequired(rawID, "id")
		id, err := parseSessionID(rawID)
		if err != nil {
			return err
		}

		registry, err := openRegistry()
		if err != nil {
			return err
		}
		defer registry.Close()

		if err := registry.Destroy(id); err != nil {
			return err
		}
		fmt.Printf("Session %s destroyed\n", id)
		return nil
	},
}

func init() {
	sessionDestroyCmd.Flags().String("id", "", "Session identifier")
	sessionCmd.AddCommand(sessionDestroyCmd)
}
