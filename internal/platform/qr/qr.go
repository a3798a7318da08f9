// Package qr renders the check-in codes embedded in ticket emails.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// CheckInContent is the string encoded into a participant's ticket QR.
func CheckInContent(participantID int64) string {
	return fmt.Sprintf("CHECKIN:%d", participantID)
}

// PNG renders content as a QR code PNG.
func PNG(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, imageSize)
}

// DataURL renders content as a base64 data URL suitable for an <img> src
// inside an HTML email.
func DataURL(content string) (string, error) {
	png, err := PNG(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
