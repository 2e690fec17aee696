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

package proof

import "github.com/prometheus/client_golang/prometheus"

const namespace = "strata"
const subSystem = "proof"

var (
	commitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "commit_total",
			Help:      "Number of commitments computed.",
		},
	)
	proveTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "prove_total",
			Help:      "Number of transition proofs generated.",
		},
	)
	invalidatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "invalidated_total",
			Help:      "Number of proof containers invalidated.",
		},
	)
)

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		commitTotal,
		proveTotal,
		invalidatedTotal,
	}
}
