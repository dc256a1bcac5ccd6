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

// Package flatcsv defines the external flat-file format: a single header
// line, then one decimal value per line with six fractional digits,
// LF-terminated.
package flatcsv

import "strconv"

// Header is the single header line of every artifact and final artifact.
const Header = "Amount"

// AppendRecord appends one formatted record line to dst and returns the
// extended slice.
func AppendRecord(dst []byte, value float64) []byte {
	dst = strconv.AppendFloat(dst, value, 'f', 6, 64)
	return append(dst, '\n')
}
