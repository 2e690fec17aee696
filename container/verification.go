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

package container

// VerificationResult is the per-layer outcome of an Interact check.
// FirstDivergent localizes where synchronization broke so a caller can
// pinpoint the failing layer; it is -1 while every layer is valid.
type VerificationResult struct {
	// Pairable is false when the two containers cannot be related at
	// all: different depth, block size or operation order.
	Pairable bool

	// Layers holds one pass/fail entry per layer, outer to inner.
	Layers []bool

	// FirstDivergent is the index of the outermost invalid layer, or -1.
	FirstDivergent int
}

func newVerificationResult(depth int) *VerificationResult {
	return &VerificationResult{
		Pairable:       true,
		Layers:         make([]bool, depth),
		FirstDivergent: -1,
	}
}

// AllValid reports whether every layer passed.
func (r *VerificationResult) AllValid() bool {
	if !r.Pairable {
		return false
	}
	for _, ok := range r.Layers {
		if !ok {
			return false
		}
	}
	return true
}

// Depth returns the number of checked layers.
func (r *VerificationResult) Depth() int {
	return len(r.Layers)
}
