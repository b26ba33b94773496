package generator

// luhnValid reports whether the digit string passes the Luhn mod-10 test:
// walking right to left, every second digit is doubled and digit-summed.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// luhnCheckDigit returns the digit 0-9 that completes partial to a Luhn-valid
// number. Exactly one digit satisfies the test for any fixed partial, so the
// second return is false only on a checksum arithmetic defect.
func luhnCheckDigit(partial string) (byte, bool) {
	for d := byte('0'); d <= '9'; d++ {
		if luhnValid(partial + string(d)) {
			return d, true
		}
	}
	return 0, false
}
