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

	"github.com/padsync/strata/compute"
	"github.com/padsync/strata/mcu"
)

var mcuCmd *cobra.Command = &cobra.Command{
	Use:              "mcu",
	Short:            "Provides access to the strata microcontroller commands",
	TraverseChildren: true,
}

// demoProgram loads two words, XORs them, stores the result and halts.
func demoProgram() []byte {
	return []byte{
		mcu.OpLoad, mcu.Operand(0, 1),
		mcu.OpLoad, mcu.Operand(1, 2),
		mcu.OpXor, mcu.Operand(2, 1),
		mcu.OpStore, mcu.Operand(1, 2),
		mcu.OpHalt, 0x00,
	}
}

var mcuRunCmd *cobra.Command = &cobra.Command{
	Use:   "run",
	Short: "Run a program on the emulated microcontroller",
	Long: `Executes a two-byte-instruction program whose arithmetic is routed
through the compute engine. Without --program, a demo program that XORs
two memory words is run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawProgram, _ := cmd.Flags().GetString("program")
		rawData, _ := cmd.Flags().GetStringSlice("data")
		wordSize, _ := cmd.Flags().GetInt("word-size")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")

		program := demoProgram()
		if rawProgram != "" {
			decoded, err := hex.DecodeString(rawProgram)
			if err != nil {
				return fmt.Errorf("malformed program: %v", err)
			}
			program = decoded
		}

		cpu := mcu.NewCPU(compute.NewEngine(compute.DefaultSlots, wordSize))
		if err := cpu.LoadProgram(program); err != nil {
			return err
		}
		for addr, rawWord := range rawData {
			word, err := hex.DecodeString(rawWord)
			if err != nil {
				return fmt.Errorf("malformed data word %d: %v", addr, err)
			}
			if err := cpu.LoadData(uint8(addr), word); err != nil {
				return err
			}
		}

		if err := cpu.Run(maxSteps); err != nil {
			return err
		}

		for addr := uint8(0); int(addr) < mcu.DefaultMemoryWords; addr++ {
			word, err := cpu.ReadData(addr)
			if err != nil {
				return err
			}
			fmt.Printf("mem[%02d] = %s\n", addr, hex.EncodeToString(word))
		}
		fmt.Printf("Flags: zero=%t negative=%t\n", cpu.Flags().Zero, cpu.Flags().Negative)
		return nil
	},
}

func init() {
	f := mcuRunCmd.Flags()
	f.String("program", "", "Hex-encoded program; two bytes per instruction")
	f.StringSlice("data", []string{"f0123456", "0f123456"}, "Hex-encoded data words loaded at increasing addresses")
	f.Int("word-size", 4, "Machine word size in bytes")
	f.Int("max-steps", 10000, "Execution step budget")

	mcuCmd.AddCommand(mcuRunCmd)
	Root.AddCommand(mcuCmd)
}
