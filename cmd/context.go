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
	"strings"

	"github.com/pborman/uuid"
	v "github.com/spf13/viper"

	"github.com/padsync/strata/cache"
	"github.com/padsync/strata/compute"
	"github.com/padsync/strata/container"
	"github.com/padsync/strata/entropy"
	"github.com/padsync/strata/log"
	"github.com/padsync/strata/session"
	"github.com/padsync/strata/storage"
	"github.com/padsync/strata/storage/badger"
	"github.com/padsync/strata/storage/bplus"
)

// openRegistry builds the session registry from the persistent flags.
func openRegistry() (*session.Registry, error) {
	var store storage.Store
	var err error

	switch v.GetString("storage") {
	case "badger":
		store, err = badger.NewBadgerStore(v.GetString("path"))
		if err != nil {
			return nil, err
		}
	case "bplus":
		store = bplus.NewBPlusTreeStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", v.GetString("storage"))
	}

	snapshots := cache.NewFastCache(v.GetInt64("cache"))
	return session.NewRegistry(store, snapshots, entropy.NewCryptoRand()), nil
}

func parseSessionID(value string) (uuid.UUID, error) {
	id := uuid.Parse(value)
	if id == nil {
		return nil, fmt.Errorf("malformed session id %q", value)
	}
	return id, nil
}

func parseOpOrder(value string) (container.OpOrder, error) {
	parts := strings.Split(value, ",")
	order := make(container.OpOrder, 0, len(parts))
	for _, part := range parts {
		op, err := compute.OpFromString(strings.ToUpper(strings.TrimSpace(part)))
		if err != nil {
			return nil, err
		}
		order = append(order, op)
	}
	return order, nil
}

func markStringRequired(value, name string) {
	if value == "" {
		log.Fatalf("Argument `%s` is required", name)
	}
}
