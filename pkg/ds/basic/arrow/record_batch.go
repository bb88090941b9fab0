/** Copyright 2025-2026 The devmem Authors.

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

package arrow

import (
	"fmt"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"

	"github.com/devmem-io/devmem/pkg/common"
)

// Frame is a columnar summary of a finished transfer: one row per
// record, one column per payload element, plus the record index.
type Frame struct {
	arrow.Record
}

func (f *Frame) NumRows() int64 {
	return f.Record.NumRows()
}

func (f *Frame) NumCols() int64 {
	return f.Record.NumCols()
}

func (f *Frame) Release() {
	if f.Record != nil {
		f.Record.Release()
		f.Record = nil
	}
}

// BuildFrame assembles the transfer summary from the resolved views.
// Every view must carry exactly `elements` values.
func BuildFrame(views []*Int32Array, elements int) (*Frame, error) {
	fields := make([]arrow.Field, 0, elements+1)
	fields = append(fields, arrow.Field{Name: "index", Type: arrow.PrimitiveTypes.Int32})
	for k := 0; k < elements; k++ {
		fields = append(fields, arrow.Field{
			Name: fmt.Sprintf("element_%d", k),
			Type: arrow.PrimitiveTypes.Int32,
		})
	}
	schema := arrow.NewSchema(fields, nil)

	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()

	for _, view := range views {
		if int(view.Length) != elements {
			return nil, common.Errorf(common.KTypeError,
				"record %d carries %d elements, expected %d",
				view.Record.Index, view.Length, elements)
		}
		rb.Field(0).(*array.Int32Builder).Append(view.Record.Index)
		for k := 0; k < elements; k++ {
			rb.Field(k + 1).(*array.Int32Builder).Append(view.Value(k))
		}
	}
	return &Frame{Record: rb.NewRecord()}, nil
}
