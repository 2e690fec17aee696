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

package metrics

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsEndpoint(t *testing.T) {
	server := NewServer("127.0.0.1:0")
	server.Register(DefaultCollectors()...)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/metrics", nil)
	server.server.Handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	body, err := ioutil.ReadAll(recorder.Body)
	require.NoError(t, err)

	for _, metric := range []string{
		"strata_container_evolve_total",
		"strata_container_interact_fail_total",
		"strata_proof_commit_total",
	} {
		require.Truef(t, strings.Contains(string(body), metric),
			"The exposition must contain %s", metric)
	}
}
