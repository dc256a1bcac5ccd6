//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package diskio

import (
	"io"
	"time"
)

type MeteredWriterCallback func(written int64, nanoseconds int64)

type MeteredWriter struct {
	w  io.Writer
	cb MeteredWriterCallback
}

// Write passes the write through to the underlying writer. On a successful
// write, it will trigger the attached callback and provide it with metrics.
// If no callback is set, it will ignore it.
func (m *MeteredWriter) Write(p []byte) (n int, err error) {
	start := time.Now()
	n, err = m.w.Write(p)
	took := time.Since(start).Nanoseconds()
	if err != nil {
		return
	}

	if m.cb != nil {
		m.cb(int64(n), took)
	}

	return
}

func NewMeteredWriter(w io.Writer, cb MeteredWriterCallback) *MeteredWriter {
	return &MeteredWriter{w: w, cb: cb}
}
