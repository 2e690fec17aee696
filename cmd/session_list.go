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
	"sort"

	"github.com/spf13/cobra"
)

var sessionListCmd *cobra.Command = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions and their iteration counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := openRegistry()
		if err != nil {
			return err
		}
		defer registry.Close()

		sessions, err := registry.List()
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(sessions))
		for id := range sessions {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("%s iteration=%d\n", id, sessions[id])
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd)
}
