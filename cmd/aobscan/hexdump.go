package main

import (
	"fmt"
	"io"
	"strings"
)

const dumpWidth = 16

// writeHexDump prints data as 16-byte rows with an ASCII column. base is the
// file offset of data[0]; bytes in [hlStart, hlEnd) are highlighted.
func writeHexDump(w io.Writer, s *styles, data []byte, base int64, hlStart, hlEnd int) {
	for i := 0; i < len(data); i += dumpWidth {
		var hexCol, asciiCol strings.Builder
		for j := 0; j < dumpWidth; j++ {
			k := i + j
			if k >= len(data) {
				hexCol.WriteString("   ")
				asciiCol.WriteByte(' ')
			} else {
				b := data[k]
				h := fmt.Sprintf("%02x", b)
				a := "."
				if b >= 0x20 && b <= 0x7e {
					a = string(rune(b))
				}
				if k >= hlStart && k < hlEnd {
					h = s.match.Sprint(h)
					a = s.match.Sprint(a)
				}
				hexCol.WriteString(h)
				hexCol.WriteByte(' ')
				asciiCol.WriteString(a)
			}
			if j == 7 {
				hexCol.WriteByte(' ')
			}
		}
		fmt.Fprintf(w, "%08x: %s |%s|\n", base+int64(i), hexCol.String(), asciiCol.String())
	}
}
