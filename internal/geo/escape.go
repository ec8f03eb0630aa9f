package geo

import (
	"bytes"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// UnescapeNonASCII rewrites \uXXXX escapes of non-ASCII characters in
// JSON text as literal UTF-8. ASCII escapes, lone surrogates and every
// other byte are copied unchanged, so the document stays equivalent.
func UnescapeNonASCII(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}

		if data[i+1] != 'u' {
			// keep two-byte escapes whole so \\u stays a backslash
			out = append(out, data[i], data[i+1])
			i++
			continue
		}

		r, ok := hexRune(data, i)
		if !ok {
			out = append(out, data[i])
			continue
		}

		size := 6
		if utf16.IsSurrogate(r) {
			low, ok := hexRune(data, i+6)
			if !ok {
				out = append(out, data[i])
				continue
			}
			if r = utf16.DecodeRune(r, low); r == utf8.RuneError {
				out = append(out, data[i])
				continue
			}
			size = 12
		}

		if r < utf8.RuneSelf {
			out = append(out, data[i:i+size]...)
		} else {
			out = utf8.AppendRune(out, r)
		}
		i += size - 1
	}

	return out
}

// hexRune decodes a \uXXXX escape starting at data[i].
func hexRune(data []byte, i int) (rune, bool) {
	if i+6 > len(data) || data[i] != '\\' || data[i+1] != 'u' {
		return 0, false
	}
	v, err := strconv.ParseUint(string(data[i+2:i+6]), 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
