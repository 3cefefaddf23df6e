/*
Copyright © 2026 the eocalc authors.
This file is part of eocalc.

eocalc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

eocalc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with eocalc.  If not, see <http://www.gnu.org/licenses/>.*/

// Package hash derives stable cache keys from request descriptions.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// Key returns a cache key of the form prefix_digest, where the digest
// is a deterministic hash of id. Keys stay readable through the
// prefix while the digest keeps entries from different requests
// apart, so persisted cache files can be both inspected and trusted.
//
// id must describe the request completely: two requests whose ids are
// equal are served the same cache entry.
func Key(prefix string, id interface{}) string {
	h := fnv.New128a()
	digest(h, id)
	return fmt.Sprintf("%s_%x", prefix, h.Sum(nil))
}

// digest writes a canonical encoding of id to w. Values gob can
// encode use gob; the rest (for example NaNs or maps with pointer
// keys) fall back to a sorted spew dump, which is stable but not
// compact.
func digest(w io.Writer, id interface{}) {
	if err := gob.NewEncoder(w).Encode(id); err == nil {
		return
	}
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		SpewKeys:                true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(w, "%#v", id)
}
