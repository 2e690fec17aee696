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

var sessionVerifyCmd *cobra.Command = &cobra.Command{
	Use:   "verify",
	Short: "Verify that two sessions form a valid pad pair",
	Long: `Runs the layer-by-layer pairing check between two sessions. With
--record, a failed check invalidates both sessions permanently.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawA, _ := cmd.Flags().GetString("id")
		rawB, _ := cmd.Flags().GetString("other")
		record, _ := cmd.Flags().GetBool("record")

		markStringRequired(rawA, "id")
		markStringRequired(rawB, "other")
		idA, err := parseSessionID(rawA)
		if err != nil {
			return err
		}
		idB, err := parseSessionID(rawB)
		if err != nil {
			return err
		}

		registry, err := openRegistry()
		if err != nil {
			return err
		}
		defer registry.Close()

		a, err := registry.Get(idA)
		if err != nil {
			return err
		}
		b, err := registry.Get(idB)
		if err != nil {
			return err
		}

		result := a.VerifyAgainst(b)
		if !result.Pairable {
			fmt.Println("Sessions are not pairable: configurations differ")
		} else {
			for layer, valid := range result.Layers {
				fmt.Printf("Layer %d: valid=%t\n", layer, valid)
			}
			if !result.AllValid() {
				fmt.Printf("First divergent layer: %d\n", result.FirstDivergent)
			}
		}

		if record {
			verdict := result.Pairable && result.AllValid()
			if err := registry.RecordVerification(idA, verdict); err != nil {
				return err
			}
			if err := registry.RecordVerification(idB, verdict); err != nil {
				return err
			}
		}

		if !result.Pairable || !result.AllValid() {
			return fmt.Errorf("verification failed")
		}
		fmt.Println("Verification succeeded")
		return nil
	},
}

func init() {
	f := sessionVerifyCmd.Flags()
	f.String("id", "", "Session identifier")
	f.String("other", "", "Identifier of the supposedly paired session")
	f.Bool("record", false, "Invalidate both sessions when verification fails")

	sessionCmd.AddCommand(sessionVerifyCmd)
}
