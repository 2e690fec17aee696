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

import "github.com/prometheus/client_golang/prometheus"

const namespace = "strata"
const subSystem = "container"

var (
	evolveTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "evolve_total",
			Help:      "Number of evolution steps (one per layer per step).",
		},
	)
	cloneTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "clone_total",
			Help:      "Number of pad clones.",
		},
	)
	interactTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "interact_total",
			Help:      "Number of pairwise verifications.",
		},
	)
	interactFailTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subSystem,
			Name:      "interact_fail_total",
			Help:      "Number of pairwise verifications with at least one invalid layer.",
		},
	)
)

// Collectors returns the package metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		evolveTotal,
		cloneTotal,
		interactTotal,
		interactFailTotal,
	}
}
