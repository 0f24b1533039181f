// Copyright 2026 The Authgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package id

import "github.com/google/uuid"

// NewUUIDv7 returns a new time-ordered UUID. UUIDv7 keeps inserts roughly
// append-only in btree indexes while staying opaque to callers.
func NewUUIDv7() string {
	// NewV7 only fails when the entropy source is broken; fall back to v4
	// rather than panicking in a request path.
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// IsUUID reports whether s parses as a UUID. Lookups that accept either an
// internal id or an external natural key use this to pick the query.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
