package participant

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPNG renders a participant scan code as a 256px PNG.
func QRPNG(code string) ([]byte, error) {
	if code == "" {
		return nil, errors.New("code required")
	}
	return qrcode.Encode(code, qrcode.Medium, 256)
}
