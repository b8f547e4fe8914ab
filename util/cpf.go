package util

import "strings"

// NormalizeCPF strips every non-digit character, so "111.444.777-35" becomes
// "11144477735".
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	b.Grow(len(cpf))
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF reports whether cpf is a well-formed CPF number. Formatting
// characters are ignored; anything that does not reduce to 11 digits with
// matching check digits is invalid.
func ValidateCPF(cpf string) bool {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return false
	}
	if strings.Count(digits, digits[:1]) == len(digits) {
		return false
	}

	for i := 9; i < 11; i++ {
		sum := 0
		for j := 0; j < i; j++ {
			sum += int(digits[j]-'0') * (i + 1 - j)
		}
		check := (sum * 10 % 11) % 10
		if check != int(digits[i]-'0') {
			return false
		}
	}
	return true
}

// FormatCPF renders a valid CPF as 000.000.000-00. Other input is returned as is.
func FormatCPF(cpf string) string {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return cpf
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}
