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

	"github.com/padsync/strata/entropy"
)

var sessionEvolveCmd *cobra.Command = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve a session by one or more steps",
	Long: `Advances every layer of the session. Entropy is drawn either from
the platform randomness source or, with --seed, from a deterministic
counter stream so that paired sessions on other hosts can replay the
same steps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawID, _ := cmd.Flags().GetString("id")
		steps, _ := cmd.Flags().GetInt("steps")
		seeded := cmd.Flags().Changed("seed")
		seed, _ := cmd.Flags().GetUint64("seed")

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

		session, err := registry.Get(id)
		if err != nil {
			return err
		}

		var src entropy.Source = entropy.NewCryptoRand()
		if seeded {
			src = entropy.NewCounter(seed)
		}

		block := make([]byte, session.BlockSize())
		for i := 0; i < steps; i++ {
			if err := src.Fill(block); err != nil {
				return err
			}
			proof, err := registry.Evolve(id, block)
			if err != nil {
				return err
			}
			fmt.Printf("Iteration: %d\n", proof.Iteration)
			fmt.Printf("Commitment: %s\n", hex.EncodeToString(proof.NewCommitment))
			fmt.Printf("Proof tag: %s\n", hex.EncodeToString(proof.Tag))
		}
		return nil
	},
}

func init() {
	f := sessionEvolveCmd.Flags()
	f.String("id", "", "Session identifier")
	f.Int("steps", 1, "Number of evolution steps")
	f.Uint64("seed", 0, "Deterministic entropy seed, shared with the paired session")

	sessionCmd.AddCommand(sessionEvolveCmd)
}
