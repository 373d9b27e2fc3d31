package vidra

import (
	"fmt"
	"strconv"
	"strings"
)

func errUnsupportedPathCommand(op string) error {
	return fmt.Errorf("unsupported path command %q (only M and L are allowed)", op)
}

func errTruncatedPathCommand(op string) error {
	return fmt.Errorf("path command %q is missing its x y arguments", op)
}

// tokenizePath splits a "M x y L x y L x y" string into ["M","x","y","L",...],
// tolerating commas as separators between coordinates.
func tokenizePath(d string) []string {
	d = strings.ReplaceAll(d, ",", " ")
	return strings.Fields(d)
}

func parseFloatTok(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid path coordinate %q: %w", tok, err)
	}
	return v, nil
}
