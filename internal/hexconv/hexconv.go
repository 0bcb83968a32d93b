package hexconv

// Halfbyte maps hex digits of both cases to their values. Every other byte maps to
// Invalid.
var Halfbyte = func() (table [256]byte) {
	for i := range table {
		table[i] = Invalid
	}

	for c := byte('0'); c <= '9'; c++ {
		table[c] = c - '0'
	}

	for c := byte('a'); c <= 'f'; c++ {
		table[c] = c - 'a' + 10
		table[c-'a'+'A'] = c - 'a' + 10
	}

	return table
}()

const Invalid byte = 0xFF

// Parse returns the value of the hex digit and whether it is one.
func Parse(char byte) (value byte, ok bool) {
	value = Halfbyte[char]
	return value, value != Invalid
}

const upperDigits = "0123456789ABCDEF"

// Append appends the number in uppercase hexadecimal without leading zeroes.
func Append(buff []byte, n uint64) []byte {
	if n == 0 {
		return append(buff, '0')
	}

	var digits [16]byte
	i := len(digits)

	for n > 0 {
		i--
		digits[i] = upperDigits[n&0xF]
		n >>= 4
	}

	return append(buff, digits[i:]...)
}
